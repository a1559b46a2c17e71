// Package cli wires cmdarr's cobra command tree. Grounded on the shape of
// cmd/root.go in the katomik reference repo (one NewRootCmd assembling
// subcommands, SilenceErrors/SilenceUsage so errors print once).
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the cmdarr command tree: serve, migrate, seed.
func NewRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "cmdarr",
		Short:         "Cmdarr orchestrates discovery, playlist sync, and metadata upkeep across a music-management stack.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to an optional YAML/TOML config file (CMDARR_* env vars always take precedence)")

	root.AddCommand(newServeCmd(&configFile))
	root.AddCommand(newMigrateCmd(&configFile))
	root.AddCommand(newSeedCmd(&configFile))
	return root
}
