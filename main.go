// pgmonkey is a CLI tool for managing PostgreSQL connection configurations,
// testing connectivity, moving CSV data, and auditing server settings.
//
// See README.md for usage documentation.
package main

import (
	"fmt"
	"os"

	"github.com/RexBytes/pgmonkey/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
