// Command cmdarr runs the music-automation orchestrator: the Configuration
// Store, Response/Library caches, Execution Registry, Scheduler, and the
// thin HTTP/WS surface described by spec §6. Grounded on the teacher's
// cmd/server main (flag parsing, structured logging setup, signal-driven
// graceful shutdown), restructured around cobra subcommands the way
// cmd/migrate and cmd/seed split the teacher's single binary into
// operator-invokable steps.
package main

import (
	"fmt"
	"os"

	"github.com/cmdarr/cmdarr/cmd/cmdarr/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
