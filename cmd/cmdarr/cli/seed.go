package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSeedCmd seeds the Configuration Store's declared default rows (idempotent,
// already performed by config.New on every startup) and reports any
// required keys still missing, so an operator can populate them with
// `PUT /api/config/{key}` before the first `serve`. Matches the teacher's
// separate cmd/seed step run once ahead of the main server.
func newSeedCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed default configuration and report missing required settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p1, err := initPhase1(ctx, *configFile)
			if err != nil {
				return err
			}
			defer p1.DB.Close()

			missing, err := p1.Config.ValidateRequired(ctx)
			if err != nil {
				return fmt.Errorf("validating required configuration: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(missing) == 0 {
				fmt.Fprintln(out, "configuration seeded; all required settings are present")
				return nil
			}

			fmt.Fprintln(out, "configuration seeded; the following required settings still need values:")
			for _, key := range missing {
				fmt.Fprintf(out, "  - %s\n", key)
			}
			return nil
		},
	}
}
