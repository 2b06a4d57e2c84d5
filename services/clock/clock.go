// Package clock answers questions about the current time.
package clock

import (
	"fmt"
	"time"

	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/model"
	"github.com/kestrelhq/kestrel/core/service"
)

var phrases = [][]string{
	{"what", "is", "the", "time"},
	{"whats", "the", "time"},
	{"what", "time", "is", "it"},
}

// Service tells the time of day.
type Service struct {
	*component.Base
	belief float64
	now    func() time.Time
}

// New builds the clock service. A zero belief defaults to 1.
func New(belief float64, notifier component.Notifier) *Service {
	if belief == 0 {
		belief = 1
	}
	return &Service{
		Base:   component.NewBase("clock", notifier),
		belief: belief,
		now:    time.Now,
	}
}

// Evaluate claims utterances that start with a time question.
func (s *Service) Evaluate(tokens []model.Token) service.Handler {
	words := model.Words(tokens)
	for _, phrase := range phrases {
		if !hasPrefix(words, phrase) {
			continue
		}
		return service.NewFuncHandler(s, tokens, s.belief, s.tell)
	}
	return nil
}

func (s *Service) tell() (*service.Result, error) {
	s.Notify(model.StatusWorking)
	defer s.Notify(model.StatusIdle)
	text := fmt.Sprintf("It's %s.", s.now().Format("3:04 PM"))
	return &service.Result{Text: text, Exclusive: true}, nil
}

func hasPrefix(words, phrase []string) bool {
	if len(words) < len(phrase) {
		return false
	}
	for i, w := range phrase {
		if words[i] != w {
			return false
		}
	}
	return true
}
