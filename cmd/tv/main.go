// Command tv browses and edits hierarchical item files in the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/vanderheijden86/treeview/pkg/debug"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	err := newRootCmd().Execute()
	debug.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
