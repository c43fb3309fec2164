package main

import (
	"context"
	"fmt"
	"os"

	"bestpick/internal/config"
	"bestpick/internal/logger"
	"bestpick/internal/pipeline"
)

func main() {
	if path := config.LoadDotEnv(); path != "" {
		fmt.Fprintf(os.Stderr, "Loaded .env from: %s\n", path)
	}

	// the real logger is built once flags are parsed; this one only reports signals
	signalLogger := logger.New("warn", true)
	ctx, cancel := pipeline.SetupSignalHandler(context.Background(), signalLogger, nil)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
