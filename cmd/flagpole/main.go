// Package main is the entry point for the flagpole API server.
package main

import (
	"os"

	"github.com/stacklok/flagpole/cmd/flagpole/app"
	"github.com/stacklok/flagpole/internal/logger"
)

func main() {
	err := app.NewRootCmd().Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
