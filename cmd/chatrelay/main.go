package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Serve   ServeCommand   `cmd:"serve" help:"Start the chat relay server."`
	Chat    ChatCommand    `cmd:"chat" help:"Chat through a running chat relay server."`
	Ask     AskCommand     `cmd:"ask" help:"Send a single prompt straight to the configured provider."`
	Ping    PingCommand    `cmd:"ping" help:"Check that a chat relay server is up."`
	Version VersionCommand `cmd:"version" help:"Print the version of the chat relay."`
}

func main() {
	var cli CLI
	ctx := context.Background()
	kctx := kong.Parse(&cli,
		kong.Name("chatrelay"),
		kong.Description("Relay chat messages to OpenAI or Azure OpenAI."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)))
	if err := kctx.Run(); err != nil {
		log := getLogger("error")
		log.Error("error", slog.Any("error", err))
		os.Exit(1)
	}
}

func getLogger(level string) *slog.Logger {
	ll := slog.LevelInfo
	switch level {
	case "debug":
		ll = slog.LevelDebug
	case "info":
		ll = slog.LevelInfo
	case "warn":
		ll = slog.LevelWarn
	case "error":
		ll = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ll,
	}))
}
