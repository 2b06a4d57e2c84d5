// Package app wires configuration, components and the dispatch engine into a
// runnable service.
package app

import (
	"context"
	"fmt"

	"github.com/kestrelhq/kestrel/app/plugins"
	"github.com/kestrelhq/kestrel/config"
	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/dispatch"
	"github.com/kestrelhq/kestrel/core/events"
	coremetrics "github.com/kestrelhq/kestrel/core/metrics"
	"github.com/kestrelhq/kestrel/core/service"
	"github.com/kestrelhq/kestrel/core/transcript"
	"github.com/kestrelhq/kestrel/infra/logger"
	"github.com/kestrelhq/kestrel/infra/metrics"
	"github.com/kestrelhq/kestrel/infra/notifier"
	"github.com/kestrelhq/kestrel/internal/eventbus"
)

// Service owns the dispatcher and its supporting infrastructure.
type Service struct {
	Dispatcher *dispatch.Dispatcher

	bus         *eventbus.Bus[events.StatusEvent]
	sink        coremetrics.Sink
	store       transcript.Store
	log         logger.Logger
	promEnabled bool
	promAddr    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("app")
	bus := eventbus.New[events.StatusEvent]()
	notif := notifier.NewMulti(logger.New("notifier"),
		notifier.NewLog(logger.New("notifier")),
		notifier.NewBus(bus),
	)

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sink := metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken,
			cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket,
			logger.New("influx-sink"))
		sinks = append(sinks, sink)
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	inputs, outputs, services, err := buildComponents(cfg.Components, notif)
	if err != nil {
		return nil, err
	}

	store, err := openTranscript(cfg.Transcript)
	if err != nil {
		return nil, fmt.Errorf("transcript store: %w", err)
	}

	d, err := dispatch.New(cfg.Dispatch, inputs, outputs, services, logger.New("dispatch"), sink)
	if err != nil {
		return nil, err
	}
	if store != nil {
		d.SetTranscript(store)
	}

	return &Service{
		Dispatcher:  d,
		bus:         bus,
		sink:        sink,
		store:       store,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promAddr:    cfg.Metrics.PrometheusAddr,
	}, nil
}

// Run starts the supporting infrastructure and blocks in the dispatch loop
// until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartStatusCollector(ctx, s.bus, s.sink)
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return s.Dispatcher.Run(ctx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func buildComponents(cfg config.ComponentsConfig, notif component.Notifier) (
	[]component.Input, []component.Output, []service.Service, error) {
	var inputs []component.Input
	for _, spec := range cfg.Inputs {
		f, ok := plugins.Inputs[spec.Type]
		if !ok {
			return nil, nil, nil, fmt.Errorf("unknown input type %q", spec.Type)
		}
		in, err := f(spec.Params, notif)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("input %s: %w", spec.Type, err)
		}
		inputs = append(inputs, in)
	}
	var outputs []component.Output
	for _, spec := range cfg.Outputs {
		f, ok := plugins.Outputs[spec.Type]
		if !ok {
			return nil, nil, nil, fmt.Errorf("unknown output type %q", spec.Type)
		}
		out, err := f(spec.Params, notif)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("output %s: %w", spec.Type, err)
		}
		outputs = append(outputs, out)
	}
	var services []service.Service
	for _, spec := range cfg.Services {
		f, ok := plugins.Services[spec.Type]
		if !ok {
			return nil, nil, nil, fmt.Errorf("unknown service type %q", spec.Type)
		}
		svc, err := f(spec.Params, notif)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("service %s: %w", spec.Type, err)
		}
		services = append(services, svc)
	}
	return inputs, outputs, services, nil
}

func openTranscript(cfg config.TranscriptConfig) (transcript.Store, error) {
	switch cfg.Backend {
	case "jsonl":
		return transcript.NewJSONLStore(cfg.Path)
	case "sqlite":
		return transcript.NewSQLiteStore(cfg.Path)
	default:
		return nil, nil
	}
}
