// Package httpd provides an HTTP input component: utterances are POSTed as
// JSON and buffered until the engine polls for them.
package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/logger"
	"github.com/kestrelhq/kestrel/core/model"
)

// Config defines the listen address for the HTTP input.
type Config struct {
	Addr string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8484"
	}
}

// Input accepts utterances over HTTP.
type Input struct {
	*component.Base
	cfg Config
	log logger.Logger

	srv     *http.Server
	mu      sync.Mutex
	pending [][]model.Token
}

// NewInput builds the input. The listener is opened in Start.
func NewInput(cfg Config, notifier component.Notifier, log logger.Logger) *Input {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	return &Input{
		Base: component.NewBase("http-input", notifier),
		cfg:  cfg,
		log:  log,
	}
}

// Router exposes the HTTP routes, also used directly by tests.
func (in *Input) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/utterances", in.handlePost)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Start begins serving in the background.
func (in *Input) Start() error {
	in.srv = &http.Server{Addr: in.cfg.Addr, Handler: in.Router()}
	go func() {
		if err := in.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			in.log.Errorf("http input: %v", err)
		}
	}()
	in.Notify(model.StatusIdle)
	return nil
}

// Stop shuts the server down gracefully.
func (in *Input) Stop() error {
	if in.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return in.srv.Shutdown(ctx)
}

// Read pops one pending batch, or nil when nothing arrived.
func (in *Input) Read() []model.Token {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.pending) == 0 {
		return nil
	}
	batch := in.pending[0]
	in.pending = in.pending[1:]
	if len(in.pending) == 0 {
		in.Notify(model.StatusIdle)
	}
	return batch
}

type utterance struct {
	Text   string        `json:"text"`
	Tokens []model.Token `json:"tokens"`
}

func (in *Input) handlePost(w http.ResponseWriter, r *http.Request) {
	var u utterance
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, "invalid utterance", http.StatusBadRequest)
		return
	}
	tokens := u.Tokens
	if len(tokens) == 0 {
		tokens = model.Tokenize(u.Text)
	}
	if len(tokens) == 0 {
		http.Error(w, "empty utterance", http.StatusBadRequest)
		return
	}
	in.mu.Lock()
	in.pending = append(in.pending, tokens)
	in.mu.Unlock()
	in.Notify(model.StatusActive)
	w.WriteHeader(http.StatusAccepted)
}
