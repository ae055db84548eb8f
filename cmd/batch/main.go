package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"fintrack/internal/logger"
)

// errBatchFailures marks a run that completed with per-definition failures.
var errBatchFailures = errors.New("batch completed with failures")

func main() {
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, errBatchFailures) {
			logger.Sync()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}
