// # cmd/layered/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"layered/internal/ui/cli"
)

func main() {
	logLevel := slog.LevelInfo
	if cli.Verbose(os.Args[1:]) {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cmd := cli.NewRootCommand()
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
