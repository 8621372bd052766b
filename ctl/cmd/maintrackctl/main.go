// maintrackctl is a command-line client for maintrack-server.
//
// Usage:
//
//	maintrackctl --server http://localhost:8080 tables
//	maintrackctl show Equipments
//	maintrackctl stats
//
// Set MAINTRACK_LOG=debug for request tracing on stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maintrack/maintrack/ctl/internal/command"
	mylog "github.com/maintrack/maintrack/ctl/internal/log"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	args := os.Args
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := command.NewApp(os.Stdout).Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
