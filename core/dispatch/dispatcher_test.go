package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/metrics"
	"github.com/kestrelhq/kestrel/core/model"
	"github.com/kestrelhq/kestrel/core/service"
	"github.com/kestrelhq/kestrel/core/transcript"
)

func testConfig() Config {
	return Config{KeyPhrases: []string{"hey kestrel"}, PollIntervalMS: 1}
}

func utter(text string) []model.Token { return model.Tokenize(text) }

type fakeInput struct {
	*component.Base
	mu       sync.Mutex
	batches  [][]model.Token
	startErr error
}

func newFakeInput(batches ...[]model.Token) *fakeInput {
	return &fakeInput{Base: component.NewBase("fake-input", nil), batches: batches}
}

func (f *fakeInput) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	return f.Base.Start()
}

func (f *fakeInput) Read() []model.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b
}

type fakeOutput struct {
	*component.Base
	mu       sync.Mutex
	writes   []string
	writeErr error
	stopErr  error
	stopped  bool
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{Base: component.NewBase("fake-output", nil)}
}

func (f *fakeOutput) Write(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, text)
	return f.writeErr
}

func (f *fakeOutput) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return f.stopErr
}

func (f *fakeOutput) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.writes...)
}

type fakeService struct {
	*component.Base
	eval      func(tokens []model.Token) service.Handler
	evaluated int
}

func newFakeService(name string, eval func(tokens []model.Token) service.Handler) *fakeService {
	return &fakeService{Base: component.NewBase(name, nil), eval: eval}
}

func (f *fakeService) Evaluate(tokens []model.Token) service.Handler {
	f.evaluated++
	if f.eval == nil {
		return nil
	}
	return f.eval(tokens)
}

// textService claims everything with a fixed belief and result.
func textService(name string, belief float64, text string, exclusive bool) *fakeService {
	svc := newFakeService(name, nil)
	svc.eval = func(tokens []model.Token) service.Handler {
		return service.NewFuncHandler(svc, tokens, belief, func() (*service.Result, error) {
			return &service.Result{Text: text, Exclusive: exclusive}, nil
		})
	}
	return svc
}

type captureSink struct {
	mu     sync.Mutex
	events []metrics.CycleEvent
}

func (s *captureSink) RecordCycle(ev metrics.CycleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *captureSink) last(t *testing.T) metrics.CycleEvent {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		t.Fatal("no cycle events recorded")
	}
	return s.events[len(s.events)-1]
}

type captureStore struct {
	records []transcript.Record
}

func (s *captureStore) Append(_ context.Context, rec transcript.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *captureStore) Query(context.Context, transcript.Query) ([]transcript.Record, error) {
	return nil, nil
}

func (s *captureStore) Close() error { return nil }

func mustNew(t *testing.T, services []service.Service, sink metrics.Sink) *Dispatcher {
	t.Helper()
	d, err := New(testConfig(), nil, nil, services, nil, sink)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d
}

func TestNoKeyPhraseMeansSilenceAndNoEvaluation(t *testing.T) {
	svc := newFakeService("any", nil)
	sink := &captureSink{}
	d := mustNew(t, []service.Service{svc}, sink)

	response, ok := d.HandleUtterance("test", utter("whats the time"))
	if ok || response != "" {
		t.Fatalf("expected silence, got %q", response)
	}
	if svc.evaluated != 0 {
		t.Fatalf("services must not be invoked without a key phrase, got %d", svc.evaluated)
	}
	if out := sink.last(t).Outcome; out != metrics.OutcomeNoMatch {
		t.Errorf("expected no_match outcome, got %s", out)
	}
}

func TestNoClaimingServiceYieldsApology(t *testing.T) {
	svc := newFakeService("declines", nil)
	sink := &captureSink{}
	d := mustNew(t, []service.Service{svc}, sink)

	response, ok := d.HandleUtterance("test", utter("hey kestrel gibberish"))
	if !ok || response != Apology {
		t.Fatalf("expected apology, got %q (ok=%v)", response, ok)
	}
	if svc.evaluated != 1 {
		t.Fatalf("expected exactly one evaluation, got %d", svc.evaluated)
	}
	if out := sink.last(t).Outcome; out != metrics.OutcomeApology {
		t.Errorf("expected apology outcome, got %s", out)
	}
}

func TestHandlersRankedByDescendingBelief(t *testing.T) {
	services := []service.Service{
		textService("low", 0.2, "a", false),
		textService("high", 0.9, "b", false),
		textService("mid", 0.5, "c", false),
	}
	d := mustNew(t, services, nil)

	response, ok := d.HandleUtterance("test", utter("hey kestrel go"))
	if !ok || response != "bca" {
		t.Fatalf("expected %q got %q", "bca", response)
	}
}

func TestEqualBeliefsKeepEvaluationOrder(t *testing.T) {
	services := []service.Service{
		textService("first", 0.5, "a", false),
		textService("second", 0.5, "b", false),
	}
	d := mustNew(t, services, nil)

	response, _ := d.HandleUtterance("test", utter("hey kestrel go"))
	if response != "ab" {
		t.Fatalf("expected %q got %q", "ab", response)
	}
}

func TestExclusiveResultShortCircuits(t *testing.T) {
	invoked := false
	second := newFakeService("second", nil)
	second.eval = func(tokens []model.Token) service.Handler {
		return service.NewFuncHandler(second, tokens, 0.5, func() (*service.Result, error) {
			invoked = true
			return &service.Result{Text: "b"}, nil
		})
	}
	services := []service.Service{
		textService("first", 0.9, "a", true),
		second,
	}
	d := mustNew(t, services, nil)

	response, _ := d.HandleUtterance("test", utter("hey kestrel go"))
	if response != "a" {
		t.Fatalf("expected %q got %q", "a", response)
	}
	if invoked {
		t.Fatal("lower-ranked handler must not run after an exclusive result")
	}
}

func TestExclusiveResultIncludesOwnText(t *testing.T) {
	services := []service.Service{
		textService("first", 0.9, "a", false),
		textService("second", 0.5, "b", true),
	}
	d := mustNew(t, services, nil)

	response, _ := d.HandleUtterance("test", utter("hey kestrel go"))
	if response != "ab" {
		t.Fatalf("expected %q got %q", "ab", response)
	}
}

func TestFailingHandlerIsSkipped(t *testing.T) {
	failing := newFakeService("failing", nil)
	failing.eval = func(tokens []model.Token) service.Handler {
		return service.NewFuncHandler(failing, tokens, 0.9, func() (*service.Result, error) {
			return nil, errors.New("boom")
		})
	}
	services := []service.Service{
		failing,
		textService("working", 0.5, "ok", false),
	}
	sink := &captureSink{}
	d := mustNew(t, services, sink)

	response, ok := d.HandleUtterance("test", utter("hey kestrel go"))
	if !ok || response != "ok" {
		t.Fatalf("expected %q got %q", "ok", response)
	}
	if ev := sink.last(t); ev.HandlerErrors != 1 {
		t.Errorf("expected 1 handler error, got %d", ev.HandlerErrors)
	}
}

func TestPanickingHandlerIsConfined(t *testing.T) {
	panicking := newFakeService("panicking", nil)
	panicking.eval = func(tokens []model.Token) service.Handler {
		return service.NewFuncHandler(panicking, tokens, 0.9, func() (*service.Result, error) {
			panic("blew up")
		})
	}
	services := []service.Service{
		panicking,
		textService("working", 0.5, "ok", false),
	}
	d := mustNew(t, services, nil)

	response, _ := d.HandleUtterance("test", utter("hey kestrel go"))
	if response != "ok" {
		t.Fatalf("expected %q got %q", "ok", response)
	}
}

func TestEmptyAccumulationIsSilence(t *testing.T) {
	services := []service.Service{textService("mute", 0.9, "", false)}
	sink := &captureSink{}
	d := mustNew(t, services, sink)

	response, ok := d.HandleUtterance("test", utter("hey kestrel go"))
	if ok || response != "" {
		t.Fatalf("expected silence, got %q", response)
	}
	if out := sink.last(t).Outcome; out != metrics.OutcomeSilence {
		t.Errorf("expected silence outcome, got %s", out)
	}
}

func TestOffsetDropsPhraseAndForwardsRest(t *testing.T) {
	var seen []model.Token
	svc := newFakeService("inspect", nil)
	svc.eval = func(tokens []model.Token) service.Handler {
		seen = tokens
		return nil
	}
	d := mustNew(t, []service.Service{svc}, nil)

	d.HandleUtterance("test", utter("um hey kestrel whats up"))
	if len(seen) != 2 || seen[0].Element != "whats" || seen[1].Element != "up" {
		t.Fatalf("unexpected forwarded tokens: %v", seen)
	}
}

func TestTranscriptRecordsCycle(t *testing.T) {
	failing := newFakeService("failing", nil)
	failing.eval = func(tokens []model.Token) service.Handler {
		return service.NewFuncHandler(failing, tokens, 0.9, func() (*service.Result, error) {
			return nil, errors.New("boom")
		})
	}
	services := []service.Service{
		failing,
		textService("working", 0.5, "ok", true),
	}
	store := &captureStore{}
	d := mustNew(t, services, nil)
	d.SetTranscript(store)

	d.HandleUtterance("test", utter("hey kestrel go"))
	if len(store.records) != 1 {
		t.Fatalf("expected 1 record got %d", len(store.records))
	}
	rec := store.records[0]
	if rec.ID == "" || rec.Input != "test" || rec.Offset != 2 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Response != "ok" || rec.Apology {
		t.Fatalf("unexpected response in record: %+v", rec)
	}
	if len(rec.Handlers) != 2 {
		t.Fatalf("expected 2 handler records got %d", len(rec.Handlers))
	}
	if rec.Handlers[0].Service != "failing" || rec.Handlers[0].Error == "" {
		t.Errorf("failing handler not recorded: %+v", rec.Handlers[0])
	}
	if rec.Handlers[1].Service != "working" || !rec.Handlers[1].Exclusive {
		t.Errorf("working handler not recorded: %+v", rec.Handlers[1])
	}
}

func TestRunDeliversResponses(t *testing.T) {
	input := newFakeInput(utter("hey kestrel go"))
	output := newFakeOutput()
	services := []service.Service{textService("svc", 1, "pong", true)}
	d, err := New(testConfig(), []component.Input{input}, []component.Output{output}, services, nil, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(output.written()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no response delivered")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := output.written(); len(got) != 1 || got[0] != "pong" {
		t.Fatalf("unexpected writes: %v", got)
	}
	if !output.stopped {
		t.Error("output was not stopped on shutdown")
	}
}

func TestRunFailsFastOnStartError(t *testing.T) {
	input := newFakeInput()
	input.startErr = fmt.Errorf("no microphone")
	d, err := New(testConfig(), []component.Input{input}, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	if err := d.Run(context.Background()); err == nil {
		t.Fatal("expected startup error")
	}
}

func TestStopIsBestEffort(t *testing.T) {
	bad := newFakeOutput()
	bad.stopErr = errors.New("stuck")
	good := newFakeOutput()
	d, err := New(testConfig(), nil, []component.Output{bad, good}, nil, nil, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !bad.stopped || !good.stopped {
		t.Fatalf("all components must be stopped: bad=%v good=%v", bad.stopped, good.stopped)
	}
}

func TestOutputFailureIsIsolated(t *testing.T) {
	bad := newFakeOutput()
	bad.writeErr = errors.New("broken pipe")
	good := newFakeOutput()
	services := []service.Service{textService("svc", 1, "pong", true)}
	d, err := New(testConfig(), nil, []component.Output{bad, good}, services, nil, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	response, ok := d.HandleUtterance("test", utter("hey kestrel go"))
	if !ok {
		t.Fatal("expected a response")
	}
	d.respond(response)
	if got := good.written(); len(got) != 1 || got[0] != "pong" {
		t.Fatalf("second output must still receive the response, got %v", got)
	}
}

func TestNewRejectsEmptyKeyPhrases(t *testing.T) {
	if _, err := New(Config{}, nil, nil, nil, nil, nil); err == nil {
		t.Fatal("expected config error")
	}
}
