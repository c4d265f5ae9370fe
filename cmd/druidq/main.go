// Command druidq builds and runs native Druid queries from declarative
// query documents.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/druidq/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
