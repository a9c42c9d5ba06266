package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpfielding/dicomcore/cmd/dcmcore/cmd"
	"gopkg.in/natefinch/lumberjack.v2"
)

// GitSHA is stamped at build time via -ldflags.
var GitSHA string = "NA"

func main() {
	ctx, cnc := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cnc()
	go func() {
		defer cnc() // removes the signal handler so a second ctrl-c falls through to the default kill
		<-ctx.Done()
	}()

	rotator := &lumberjack.Logger{
		Filename:   logFilePath(),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	defer rotator.Close()

	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	slog.SetDefault(slog.New(slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level})))

	if err := cmd.NewRoot(ctx, GitSHA, level).ExecuteContext(ctx); err != nil {
		slog.ErrorContext(ctx, "command failed", "error", err)
		os.Exit(1)
	}
}

func logFilePath() string {
	if p := os.Getenv("DCMCORE_LOG_FILE"); p != "" {
		return p
	}
	return "dcmcore.log"
}
