package main

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/torosent/benchboard/internal/control"
)

func newControlCmd() *cobra.Command {
	names := lo.Map(control.Actions(), func(a control.Action, _ int) string { return string(a) })
	return &cobra.Command{
		Use:       fmt.Sprintf("control <%s>", strings.Join(names, "|")),
		Short:     "Trigger a server-side load simulation or reset it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := control.ParseAction(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			client, err := a.controlClient()
			if err != nil {
				return err
			}
			if err := client.Send(ctx, action); err != nil {
				return fmt.Errorf("control %s: %w", action, err)
			}
			path, _ := action.Path()
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s (POST %s)\n", action, path)
			return nil
		},
	}
}
