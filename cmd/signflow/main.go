// Command signflow runs the signing workflow persistence service and its
// editor tooling.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/signflow/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
