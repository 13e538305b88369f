// Command lmparser inspects and chops PET list-mode containers.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/davidkvcs/rh-scripts-1/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Reported {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
