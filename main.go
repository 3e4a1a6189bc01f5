package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"

	"phoenix-rest/internal/authserver"
	"phoenix-rest/internal/config"
	"phoenix-rest/internal/protocol"
)

var BuildVersion = "dev"

func main() {
	rootCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	var opts config.Options
	parser := config.NewParser(&opts)
	parser.Name = "phoenix-rest"
	if err := registerCommands(parser, newCommandEnv(rootCtx, &opts, os.Stdin, os.Stdout)); err != nil {
		panic(err)
	}

	_, err := parser.Parse()
	if err == nil {
		return
	}
	var flagErr *flags.Error
	switch {
	case errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp:
		os.Exit(0)
	case errors.As(err, &flagErr), protocol.IsProgrammerError(err):
		os.Exit(2)
	default:
		os.Exit(1)
	}
}

func registerCommands(parser *flags.Parser, env *commandEnv) error {
	commands := []struct {
		name  string
		short string
		long  string
		data  any
	}{
		{"trigger", "Trigger an event", "Trigger an event on one or more channels (at most 10).", &triggerCommand{env: env}},
		{"channels", "List occupied channels", "List occupied channels, optionally filtered by prefix.", &channelsCommand{env: env}},
		{"channel-info", "Show channel state", "Show occupancy and counters for one channel.", &channelInfoCommand{env: env}},
		{"users", "List presence members", "List the users subscribed to a presence channel.", &usersCommand{env: env}},
		{"auth", "Sign a subscription", "Print the auth payload for a private or presence channel subscription.", &authCommand{env: env}},
		{"serve", "Run the auth endpoint", "Serve POST "+authserver.AuthPath+" for browser clients until interrupted.", &serveCommand{env: env}},
		{"publish", "Publish NDJSON events", "Read one event per line from stdin and publish them concurrently.", &publishCommand{env: env}},
		{"configure", "Save connection profile", "Validate the current connection settings and save them as the profile.", &configureCommand{env: env}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return err
		}
	}
	return nil
}
