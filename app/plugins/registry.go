// Package plugins holds the component registry: configuration names
// component types as strings and the registry maps them to factories,
// populated at build time. No runtime code loading is involved.
package plugins

import (
	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/service"
)

// InputFactory builds an input component from its raw parameter map.
type InputFactory func(params map[string]any, notifier component.Notifier) (component.Input, error)

// OutputFactory builds an output component from its raw parameter map.
type OutputFactory func(params map[string]any, notifier component.Notifier) (component.Output, error)

// ServiceFactory builds a service component from its raw parameter map.
type ServiceFactory func(params map[string]any, notifier component.Notifier) (service.Service, error)

var (
	Inputs   = map[string]InputFactory{}
	Outputs  = map[string]OutputFactory{}
	Services = map[string]ServiceFactory{}
)

func RegisterInput(name string, f InputFactory)     { Inputs[name] = f }
func RegisterOutput(name string, f OutputFactory)   { Outputs[name] = f }
func RegisterService(name string, f ServiceFactory) { Services[name] = f }
