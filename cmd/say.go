package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/app/plugins"
	"github.com/kestrelhq/kestrel/config"
	"github.com/kestrelhq/kestrel/core/dispatch"
	"github.com/kestrelhq/kestrel/core/model"
	"github.com/kestrelhq/kestrel/core/service"
	"github.com/kestrelhq/kestrel/infra/logger"
)

var sayCmd = &cobra.Command{
	Use:   "say [words...]",
	Short: "Dispatch one utterance through the configured services",
	Args:  cobra.MinimumNArgs(1),
	RunE:  say,
}

func init() {
	rootCmd.AddCommand(sayCmd)
}

func say(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New("say")
	var services []service.Service
	for _, spec := range cfg.Components.Services {
		f, ok := plugins.Services[spec.Type]
		if !ok {
			return fmt.Errorf("unknown service type %q", spec.Type)
		}
		svc, err := f(spec.Params, nil)
		if err != nil {
			return fmt.Errorf("service %s: %w", spec.Type, err)
		}
		services = append(services, svc)
	}

	d, err := dispatch.New(cfg.Dispatch, nil, nil, services, logg, nil)
	if err != nil {
		return err
	}

	for _, svc := range services {
		if err := svc.Start(); err != nil {
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
	}
	defer func() {
		for _, svc := range services {
			if err := svc.Stop(); err != nil {
				logg.Errorf("failed to stop %s: %v", svc.Name(), err)
			}
		}
	}()

	// The key-phrase is implied on the command line, so prepend it.
	text := cfg.Dispatch.KeyPhrases[0] + " " + strings.Join(args, " ")
	response, ok := d.HandleUtterance("say", model.Tokenize(text))
	if !ok {
		fmt.Println("(no response)")
		return nil
	}
	fmt.Println(response)
	return nil
}
