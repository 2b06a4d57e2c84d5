// Package service defines the contract between the dispatch engine and the
// services that answer utterances.
package service

import (
	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/model"
)

// Service is a component that can claim utterances.
type Service interface {
	component.Component
	// Evaluate inspects the tokens following the key-phrase and returns a
	// Handler when the service applies, or nil when it does not.
	Evaluate(tokens []model.Token) Handler
}

// Handler is the single-use product of a successful evaluation. Handle
// performs the action, possibly with side effects, and is invoked at most
// once per dispatch cycle.
type Handler interface {
	Handle() (*Result, error)
	// Belief is the owning service's confidence, nominally in [0,1]. Values
	// outside the range are not clamped; they only affect ranking.
	Belief() float64
	Service() Service
	Tokens() []model.Token
}

// Result is what a handler produced.
type Result struct {
	// Text is the response fragment, empty when the handler acted silently.
	Text string
	// Exclusive stops lower-ranked handlers from running this cycle.
	Exclusive bool
}

// BaseHandler carries the bookkeeping every handler needs. Services embed it
// and implement Handle.
type BaseHandler struct {
	svc    Service
	tokens []model.Token
	belief float64
}

func NewBaseHandler(svc Service, tokens []model.Token, belief float64) BaseHandler {
	return BaseHandler{svc: svc, tokens: tokens, belief: belief}
}

func (h BaseHandler) Belief() float64       { return h.belief }
func (h BaseHandler) Service() Service      { return h.svc }
func (h BaseHandler) Tokens() []model.Token { return h.tokens }

// FuncHandler wraps a plain function as a Handler.
type FuncHandler struct {
	BaseHandler
	Fn func() (*Result, error)
}

// NewFuncHandler builds a handler that runs fn when handled.
func NewFuncHandler(svc Service, tokens []model.Token, belief float64, fn func() (*Result, error)) *FuncHandler {
	return &FuncHandler{BaseHandler: NewBaseHandler(svc, tokens, belief), Fn: fn}
}

func (h *FuncHandler) Handle() (*Result, error) { return h.Fn() }
