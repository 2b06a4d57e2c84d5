package mqtt

import (
	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/logger"
	"github.com/kestrelhq/kestrel/core/model"
)

// Output publishes responses on the response topic.
type Output struct {
	*component.Base
	cfg Config
	log logger.Logger
	cli pahoClient
}

// NewOutput builds the output. The broker connection is made in Start.
func NewOutput(cfg Config, notifier component.Notifier, log logger.Logger) (*Output, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Output{
		Base: component.NewBase("mqtt-output", notifier),
		cfg:  cfg,
		log:  log,
	}, nil
}

// Start connects to the broker.
func (out *Output) Start() error {
	cli, err := connect(out.cfg, "-out")
	if err != nil {
		return err
	}
	out.cli = cli
	out.Notify(model.StatusIdle)
	return nil
}

// Stop disconnects from the broker.
func (out *Output) Stop() error {
	if out.cli != nil && out.cli.IsConnected() {
		out.cli.Disconnect(250)
	}
	return nil
}

// Write publishes the response text.
func (out *Output) Write(text string) error {
	out.Notify(model.StatusWorking)
	defer out.Notify(model.StatusIdle)
	token := out.cli.Publish(out.cfg.ResponseTopic, out.cfg.QoS, false, text)
	token.Wait()
	return token.Error()
}
