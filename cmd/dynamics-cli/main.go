// Command dynamics-cli is the operator console entry point: by default it
// launches the TUI runtime; the env and config subcommands support
// non-interactive scripting.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
