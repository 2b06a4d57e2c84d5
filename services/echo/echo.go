// Package echo repeats the rest of the utterance back at the user. It doubles
// as the canonical low-belief fallback when wiring up a new deployment.
package echo

import (
	"strings"

	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/model"
	"github.com/kestrelhq/kestrel/core/service"
)

var commands = []string{"repeat", "say", "echo"}

// Service repeats whatever follows the command word.
type Service struct {
	*component.Base
	belief float64
}

// New builds the echo service. A zero belief defaults to 0.75.
func New(belief float64, notifier component.Notifier) *Service {
	if belief == 0 {
		belief = 0.75
	}
	return &Service{
		Base:   component.NewBase("echo", notifier),
		belief: belief,
	}
}

// Evaluate claims utterances that start with a repeat command and have
// something after it.
func (s *Service) Evaluate(tokens []model.Token) service.Handler {
	words := model.Words(tokens)
	if len(words) < 2 {
		return nil
	}
	for _, cmd := range commands {
		if words[0] != cmd {
			continue
		}
		rest := tokens[1:]
		return service.NewFuncHandler(s, tokens, s.belief, func() (*service.Result, error) {
			s.Notify(model.StatusWorking)
			defer s.Notify(model.StatusIdle)
			elems := make([]string, len(rest))
			for i, t := range rest {
				elems[i] = t.Element
			}
			return &service.Result{Text: strings.Join(elems, " "), Exclusive: true}, nil
		})
	}
	return nil
}
