package main

import (
	"fmt"

	"phoenix-rest/internal/feed"
	"phoenix-rest/internal/logging"
)

type publishCommand struct {
	env *commandEnv

	Workers int  `short:"w" long:"workers" default:"4" description:"Concurrent publishers"`
	Retries uint `long:"retries" default:"2" description:"Extra attempts per event after a transport failure"`
}

type publishReport struct {
	Line     int    `json:"line"`
	Event    string `json:"event,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (c *publishCommand) Execute(_ []string) error {
	logger := c.env.newLogger()
	defer logger.Close()

	dispatcher, err := c.env.newClient(logger)
	if err != nil {
		return err
	}
	publisher := feed.NewPublisher(dispatcher, feed.Options{Workers: c.Workers, Retries: c.Retries}, logger)

	var printErr error
	summary, err := publisher.Run(c.env.ctx, c.env.in, func(o feed.Outcome) {
		report := publishReport{Line: o.Line, Event: o.Event.Name, Attempts: o.Attempts}
		if o.Err != nil {
			report.Error = o.Err.Error()
		}
		if printErr == nil {
			printErr = c.env.printJSON(report)
		}
	})
	logger.Info("publish finished",
		logging.Field("published", summary.Published),
		logging.Field("failed", summary.Failed),
		logging.Field("invalid", summary.Invalid),
	)
	if err != nil {
		return err
	}
	if printErr != nil {
		return printErr
	}
	if summary.Failed+summary.Invalid > 0 {
		return fmt.Errorf("%d of %d events not published", summary.Failed+summary.Invalid, summary.Published+summary.Failed+summary.Invalid)
	}
	return nil
}
