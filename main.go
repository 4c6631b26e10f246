package main

import (
	"fmt"
	"os"

	"github.com/maxkimambo/taskpool/cmd"
	taskerrors "github.com/maxkimambo/taskpool/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, taskerrors.FormatForCLI(err))
		os.Exit(taskerrors.ExitCode(err))
	}
}
