package main

import (
	"os"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/cmd"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
