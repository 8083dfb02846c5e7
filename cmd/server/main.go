/*
main.go - Application entry point

PURPOSE:
  Runs the compliance-server command tree. See commands/ for the serve,
  seed and sweep subcommands.

EXAMPLES:
  # Serve on the default port with a file database
  ./compliance-server serve --db ./data/compliance.db

  # Load the built-in catalog for a tenant
  ./compliance-server seed --tenant acme

  # One sweep against an existing database, then exit
  ./compliance-server sweep --db ./data/compliance.db
*/
package main

import (
	"fmt"
	"os"

	"github.com/warp/compliance-engine/cmd/server/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
