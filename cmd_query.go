package main

import (
	"phoenix-rest/internal/client"
)

type channelsCommand struct {
	env *commandEnv

	Prefix string   `long:"prefix" description:"Only list channels whose name starts with this prefix"`
	Info   []string `long:"info" description:"Attribute to include per channel (e.g. user_count; repeatable)"`
}

func (c *channelsCommand) Execute(_ []string) error {
	logger := c.env.newLogger()
	defer logger.Close()

	dispatcher, err := c.env.newClient(logger)
	if err != nil {
		return err
	}
	resp, err := dispatcher.Channels(c.env.ctx, client.ChannelsQuery{FilterByPrefix: c.Prefix, Info: c.Info})
	if err != nil {
		return err
	}
	return c.env.printJSON(resp)
}

type channelArgs struct {
	Channel string `positional-arg-name:"channel" description:"Channel name"`
}

type channelInfoCommand struct {
	env *commandEnv

	Info []string    `long:"info" description:"Attribute to include (user_count, subscription_count; repeatable)"`
	Args channelArgs `positional-args:"yes" required:"yes"`
}

func (c *channelInfoCommand) Execute(_ []string) error {
	logger := c.env.newLogger()
	defer logger.Close()

	ch, err := c.env.openChannel(logger, c.Args.Channel)
	if err != nil {
		return err
	}
	info, err := ch.Info(c.env.ctx, c.Info...)
	if err != nil {
		return err
	}
	return c.env.printJSON(info)
}

type usersCommand struct {
	env *commandEnv

	Args channelArgs `positional-args:"yes" required:"yes"`
}

func (c *usersCommand) Execute(_ []string) error {
	logger := c.env.newLogger()
	defer logger.Close()

	ch, err := c.env.openChannel(logger, c.Args.Channel)
	if err != nil {
		return err
	}
	users, err := ch.Users(c.env.ctx)
	if err != nil {
		return err
	}
	return c.env.printJSON(users)
}
