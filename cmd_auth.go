package main

import (
	"encoding/json"
)

type authCommand struct {
	env *commandEnv

	Channel  string `short:"c" long:"channel" required:"true" description:"Private or presence channel name"`
	SocketID string `short:"s" long:"socket-id" required:"true" description:"Socket ID of the subscribing connection"`
	Data     string `short:"d" long:"channel-data" description:"Presence member data as JSON (e.g. {\"user_id\":\"4\"})"`
}

// Execute signs locally; no request is made to the service.
func (c *authCommand) Execute(_ []string) error {
	logger := c.env.newLogger()
	defer logger.Close()

	ch, err := c.env.openChannel(logger, c.Channel)
	if err != nil {
		return err
	}
	var customData any
	if c.Data != "" {
		customData = json.RawMessage(c.Data)
	}
	payload, err := ch.Authenticate(c.SocketID, customData)
	if err != nil {
		return err
	}
	return c.env.printJSON(payload)
}
