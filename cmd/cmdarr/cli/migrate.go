package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newMigrateCmd runs pending schema migrations and exits. store.Open
// already migrates as part of opening the connection (goose.Up is
// idempotent), so this subcommand exists for operators who want that step
// as an explicit, separately-auditable action before first `serve` —
// matching the teacher's standalone cmd/migrate binary.
func newMigrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p1, err := initPhase1(ctx, *configFile)
			if err != nil {
				return err
			}
			defer p1.DB.Close()

			fmt.Println("migrations up to date")
			return nil
		},
	}
}
