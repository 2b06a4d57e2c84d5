package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/logger"
	"github.com/kestrelhq/kestrel/core/metrics"
	"github.com/kestrelhq/kestrel/core/model"
	"github.com/kestrelhq/kestrel/core/service"
	"github.com/kestrelhq/kestrel/core/transcript"
)

// Apology is the response when a key-phrase was heard but no service claimed
// the utterance. It is distinct from silence, which means no key-phrase was
// heard at all.
const Apology = "I'm sorry, I don't know how to help with that"

// Dispatcher drives the system: it owns the components and the key-phrases
// and runs the poll/detect/evaluate/respond cycle on a single goroutine.
type Dispatcher struct {
	phrases  []KeyPhrase
	inputs   []component.Input
	outputs  []component.Output
	services []service.Service
	poll     time.Duration
	running  atomic.Bool
	log      logger.Logger
	sink     metrics.Sink
	store    transcript.Store
}

// New builds a Dispatcher. The component lists are immutable afterwards. A
// nil logger or sink defaults to the no-op implementation.
func New(cfg Config, inputs []component.Input, outputs []component.Output,
	services []service.Service, log logger.Logger, sink metrics.Sink) (*Dispatcher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	phrases := make([]KeyPhrase, 0, len(cfg.KeyPhrases))
	for _, text := range cfg.KeyPhrases {
		phrases = append(phrases, ParseKeyPhrase(text))
	}
	return &Dispatcher{
		phrases:  phrases,
		inputs:   inputs,
		outputs:  outputs,
		services: services,
		poll:     time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		log:      log,
		sink:     sink,
	}, nil
}

// SetTranscript configures the store that receives per-cycle audit records.
func (d *Dispatcher) SetTranscript(store transcript.Store) { d.store = store }

// Stop asks the main loop to exit after the current sweep.
func (d *Dispatcher) Stop() { d.running.Store(false) }

// Run starts every component, drives the main loop until the context is
// cancelled or Stop is called, then stops every component. It returns an
// error only when a component fails to start.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Infof("starting the system")
	if err := d.start(); err != nil {
		return err
	}

	d.log.Infof("entering main loop")
	d.running.Store(true)
	for d.running.Load() {
		for _, in := range d.inputs {
			if ctx.Err() != nil {
				break
			}
			tokens := in.Read()
			if len(tokens) == 0 {
				continue
			}
			d.log.Infof("read from %s: %v", in.Name(), tokens)
			if response, ok := d.HandleUtterance(in.Name(), tokens); ok {
				d.respond(response)
			}
		}

		select {
		case <-ctx.Done():
			d.log.Warnf("interrupt received, leaving main loop")
			d.running.Store(false)
		case <-time.After(d.poll):
		}
	}

	d.log.Infof("stopping the system")
	d.stop()
	return nil
}

// start brings every component up, in order: inputs, outputs, services. Any
// failure is fatal; nothing runs partially started.
func (d *Dispatcher) start() error {
	for _, c := range d.components() {
		d.log.Infof("starting %s", c.Name())
		if err := c.Start(); err != nil {
			return fmt.Errorf("start %s: %w", c.Name(), err)
		}
	}
	return nil
}

// stop is best-effort: one component's failure never blocks the rest.
func (d *Dispatcher) stop() {
	for _, c := range d.components() {
		d.log.Infof("stopping %s", c.Name())
		if err := c.Stop(); err != nil {
			d.log.Errorf("failed to stop %s: %v", c.Name(), err)
		}
	}
}

func (d *Dispatcher) components() []component.Component {
	all := make([]component.Component, 0, len(d.inputs)+len(d.outputs)+len(d.services))
	for _, c := range d.inputs {
		all = append(all, c)
	}
	for _, c := range d.outputs {
		all = append(all, c)
	}
	for _, c := range d.services {
		all = append(all, c)
	}
	return all
}

// HandleUtterance runs one dispatch cycle over a token batch and returns the
// response text, if any. It is exported so one-shot callers such as the
// "say" command can drive the engine without the poll loop; components must
// already be started.
func (d *Dispatcher) HandleUtterance(source string, tokens []model.Token) (string, bool) {
	started := time.Now()
	words := model.Words(tokens)

	offset := Detect(d.phrases, words)
	if offset < 0 {
		d.log.Debugf("key phrases %v not found in %v", d.phrases, words)
		d.recordCycle(source, metrics.OutcomeNoMatch, 0, 0, started)
		return "", false
	}

	rec := transcript.Record{
		ID:        uuid.NewString(),
		Timestamp: started,
		Input:     source,
		Words:     words,
		Offset:    offset,
	}

	// Every service gets exactly one look at the post-phrase tokens.
	rest := tokens[offset:]
	var handlers []service.Handler
	for _, svc := range d.services {
		if h := svc.Evaluate(rest); h != nil {
			handlers = append(handlers, h)
		}
	}

	if len(handlers) == 0 {
		rec.Response = Apology
		rec.Apology = true
		d.appendTranscript(rec)
		d.recordCycle(source, metrics.OutcomeApology, 0, 0, started)
		return Apology, true
	}

	// Highest belief first; ties keep service evaluation order.
	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].Belief() > handlers[j].Belief()
	})

	var response strings.Builder
	errors := 0
	for _, h := range handlers {
		hrec := transcript.HandlerRecord{
			Service: h.Service().Name(),
			Belief:  h.Belief(),
			Invoked: true,
		}
		result, err := d.invoke(h)
		switch {
		case err != nil:
			errors++
			hrec.Error = err.Error()
			d.log.Errorf("handler with tokens %v for service %s yielded: %v",
				h.Tokens(), h.Service().Name(), err)
		case result != nil:
			response.WriteString(result.Text)
			hrec.Text = result.Text
			hrec.Exclusive = result.Exclusive
		}
		rec.Handlers = append(rec.Handlers, hrec)
		if err == nil && result != nil && result.Exclusive {
			break
		}
	}

	rec.Response = response.String()
	d.appendTranscript(rec)

	if response.Len() == 0 {
		d.recordCycle(source, metrics.OutcomeSilence, len(handlers), errors, started)
		return "", false
	}
	d.recordCycle(source, metrics.OutcomeResponse, len(handlers), errors, started)
	return response.String(), true
}

// invoke confines a misbehaving handler to its own cycle slot: both returned
// errors and panics surface as a per-handler error.
func (d *Dispatcher) invoke(h service.Handler) (result *service.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle()
}

// respond hands the response to every output. Failures are isolated so that
// one broken sink cannot silence the others.
func (d *Dispatcher) respond(response string) {
	for _, out := range d.outputs {
		if err := out.Write(response); err != nil {
			d.log.Errorf("failed to respond with %s: %v", out.Name(), err)
		}
	}
}

func (d *Dispatcher) recordCycle(input string, outcome metrics.CycleOutcome, handlers, errors int, started time.Time) {
	ev := metrics.CycleEvent{
		Input:         input,
		Outcome:       outcome,
		Handlers:      handlers,
		HandlerErrors: errors,
		Duration:      time.Since(started),
		Time:          started,
	}
	if err := d.sink.RecordCycle(ev); err != nil {
		d.log.Warnf("record cycle: %v", err)
	}
}

func (d *Dispatcher) appendTranscript(rec transcript.Record) {
	if d.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.store.Append(ctx, rec); err != nil {
		d.log.Warnf("append transcript: %v", err)
	}
}
