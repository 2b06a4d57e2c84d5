package plugins

import (
	"github.com/mitchellh/mapstructure"

	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/service"
	"github.com/kestrelhq/kestrel/infra/console"
	"github.com/kestrelhq/kestrel/infra/httpd"
	"github.com/kestrelhq/kestrel/infra/logger"
	"github.com/kestrelhq/kestrel/infra/mqtt"
	"github.com/kestrelhq/kestrel/services/airquality"
	"github.com/kestrelhq/kestrel/services/clock"
	"github.com/kestrelhq/kestrel/services/echo"
)

// beliefParams is shared by services whose only parameter is their belief.
type beliefParams struct {
	Belief float64 `json:"belief"`
}

func init() {
	RegisterInput("console", func(_ map[string]any, n component.Notifier) (component.Input, error) {
		return console.NewInput(nil, n, logger.New("console-input")), nil
	})
	RegisterInput("mqtt", func(params map[string]any, n component.Notifier) (component.Input, error) {
		var cfg mqtt.Config
		if err := decode(params, &cfg); err != nil {
			return nil, err
		}
		return mqtt.NewInput(cfg, n, logger.New("mqtt-input"))
	})
	RegisterInput("http", func(params map[string]any, n component.Notifier) (component.Input, error) {
		var cfg httpd.Config
		if err := decode(params, &cfg); err != nil {
			return nil, err
		}
		return httpd.NewInput(cfg, n, logger.New("http-input")), nil
	})

	RegisterOutput("console", func(_ map[string]any, n component.Notifier) (component.Output, error) {
		return console.NewOutput(nil, n), nil
	})
	RegisterOutput("mqtt", func(params map[string]any, n component.Notifier) (component.Output, error) {
		var cfg mqtt.Config
		if err := decode(params, &cfg); err != nil {
			return nil, err
		}
		return mqtt.NewOutput(cfg, n, logger.New("mqtt-output"))
	})

	RegisterService("clock", func(params map[string]any, n component.Notifier) (service.Service, error) {
		var p beliefParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return clock.New(p.Belief, n), nil
	})
	RegisterService("echo", func(params map[string]any, n component.Notifier) (service.Service, error) {
		var p beliefParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return echo.New(p.Belief, n), nil
	})
	RegisterService("airquality", func(params map[string]any, n component.Notifier) (service.Service, error) {
		var cfg airquality.Config
		if err := decode(params, &cfg); err != nil {
			return nil, err
		}
		return airquality.New(cfg, n, logger.New("airquality"))
	})
}

// decode maps raw parameters onto a config struct using its json tags, the
// same tags the koanf loader uses.
func decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}
