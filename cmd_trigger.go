package main

import (
	"errors"

	"phoenix-rest/internal/client"
	"phoenix-rest/internal/feed"
	"phoenix-rest/internal/logging"
)

type triggerCommand struct {
	env *commandEnv

	Channels []string `short:"c" long:"channel" required:"true" description:"Target channel (repeatable, at most 10)"`
	Event    string   `short:"e" long:"event" required:"true" description:"Event name"`
	Data     string   `short:"d" long:"data" description:"Event data; sent verbatim"`
	SocketID string   `long:"socket-id" description:"Connection to exclude from delivery"`
	Retries  uint     `long:"retries" description:"Extra attempts after a transport failure"`
	Soft     bool     `long:"soft" description:"Log delivery failures instead of failing (single channel only)"`
}

func (c *triggerCommand) Execute(_ []string) error {
	logger := c.env.newLogger()
	defer logger.Close()

	if c.Soft {
		return c.triggerSoft(logger)
	}
	dispatcher, err := c.env.newClient(logger)
	if err != nil {
		return err
	}
	publisher := feed.NewPublisher(dispatcher, feed.Options{Workers: 1, Retries: c.Retries}, logger)
	resp, attempts, err := publisher.Publish(c.env.ctx, c.Channels, c.Event, c.Data, client.TriggerOptions{SocketID: c.SocketID})
	if err != nil {
		return err
	}
	logger.Debug("event triggered", logging.Field("attempts", attempts))
	return c.env.printJSON(resp)
}

func (c *triggerCommand) triggerSoft(logger *logging.Logger) error {
	if len(c.Channels) != 1 {
		return errors.New("--soft takes exactly one --channel")
	}
	ch, err := c.env.openChannel(logger, c.Channels[0])
	if err != nil {
		return err
	}
	result, err := ch.TriggerSoft(c.env.ctx, c.Event, c.Data, c.SocketID)
	if err != nil {
		return err
	}
	if !result.OK() {
		return c.env.printJSON(map[string]string{"error": result.Err.Error()})
	}
	return c.env.printJSON(result.Response)
}
