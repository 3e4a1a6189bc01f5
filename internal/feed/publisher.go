package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"phoenix-rest/internal/client"
	"phoenix-rest/internal/logging"
	"phoenix-rest/internal/protocol"
	"phoenix-rest/internal/runctx"
)

const (
	DefaultWorkers         = 4
	DefaultInitialInterval = 250 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second

	maxLineBytes = 1 << 20
)

// Event is one NDJSON line. Channel is shorthand for a single-element
// Channels. A JSON string in Data is sent as its text; any other JSON
// value is sent as encoded.
type Event struct {
	Channel  string          `json:"channel,omitempty"`
	Channels []string        `json:"channels,omitempty"`
	Name     string          `json:"event"`
	Data     json.RawMessage `json:"data"`
	SocketID string          `json:"socket_id,omitempty"`
}

func (e Event) targets() []string {
	if e.Channel == "" {
		return e.Channels
	}
	return append([]string{e.Channel}, e.Channels...)
}

func (e Event) payload() any {
	if len(e.Data) > 0 && e.Data[0] == '"' {
		var text string
		if err := json.Unmarshal(e.Data, &text); err == nil {
			return text
		}
	}
	if len(e.Data) == 0 {
		return ""
	}
	return e.Data
}

type Outcome struct {
	Line     int
	Event    Event
	Response protocol.TriggerResponse
	Attempts int
	Err      error
}

type Summary struct {
	Published int
	Failed    int
	Invalid   int
}

// Triggerer is satisfied by client.PhoenixClient.
type Triggerer interface {
	Trigger(ctx context.Context, channels []string, event string, data any, opts client.TriggerOptions) (protocol.TriggerResponse, error)
}

type Options struct {
	Workers int

	// Retries is the number of extra attempts after a transport failure.
	Retries         uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type Publisher struct {
	dispatcher Triggerer
	opts       Options
	logger     *logging.Logger
}

type job struct {
	line  int
	event Event
	err   error
}

func NewPublisher(dispatcher Triggerer, opts Options, logger *logging.Logger) *Publisher {
	if dispatcher == nil {
		panic("feed.NewPublisher: dispatcher must not be nil")
	}
	if logger == nil {
		panic("feed.NewPublisher: logger must not be nil")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = DefaultInitialInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = DefaultMaxInterval
	}
	return &Publisher{dispatcher: dispatcher, opts: opts, logger: logger}
}

// Run publishes every event read from r and calls report once per
// non-blank line, from a single goroutine. It returns when the input is
// exhausted or as soon as ctx ends, even if r is still open.
func (p *Publisher) Run(ctx context.Context, r io.Reader, report func(Outcome)) (Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job, p.opts.Workers)
	results := make(chan Outcome, p.opts.Workers)

	readDone := make(chan error, 1)
	go func() {
		defer close(jobs)
		readDone <- p.readEvents(ctx, r, jobs)
	}()

	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Go(func() {
			p.work(ctx, fmt.Sprintf("feed worker %d", i), jobs, results)
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var summary Summary
	for outcome := range results {
		switch {
		case outcome.Err == nil:
			summary.Published++
		case protocol.IsProgrammerError(outcome.Err):
			summary.Invalid++
		default:
			summary.Failed++
		}
		if report != nil {
			report(outcome)
		}
	}

	// The reader may stay blocked on an open input after cancellation; it
	// exits on its next read and is not waited for.
	select {
	case err := <-readDone:
		if err != nil {
			return summary, err
		}
	case <-ctx.Done():
	}
	return summary, ctx.Err()
}

func (p *Publisher) readEvents(ctx context.Context, r io.Reader, jobs chan<- job) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		next := job{line: line}
		if err := json.Unmarshal([]byte(text), &next.event); err != nil {
			next.err = fmt.Errorf("%w: line %d: %v", protocol.ErrSerialization, line, err)
		}
		if !runctx.SendOrDone(ctx, "feed reader", p.logger, jobs, next) {
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	return nil
}

func (p *Publisher) work(ctx context.Context, name string, jobs <-chan job, results chan<- Outcome) {
	for {
		next, ok := runctx.RecvOrDone(ctx, name, p.logger, jobs)
		if !ok {
			return
		}
		outcome := Outcome{Line: next.line, Event: next.event, Err: next.err}
		if outcome.Err == nil {
			e := next.event
			outcome.Response, outcome.Attempts, outcome.Err = p.Publish(ctx, e.targets(), e.Name, e.payload(), client.TriggerOptions{SocketID: e.SocketID})
		}
		if !runctx.SendOrDone(ctx, name, p.logger, results, outcome) {
			return
		}
	}
}

// Publish triggers one event and reports how many attempts it took. Only
// transport failures are retried; every other error is final.
func (p *Publisher) Publish(ctx context.Context, channels []string, event string, data any, opts client.TriggerOptions) (protocol.TriggerResponse, int, error) {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = p.opts.InitialInterval
	retry.MaxInterval = p.opts.MaxInterval
	retry.Reset()

	attempts := 0
	resp, err := backoff.Retry(ctx, func() (protocol.TriggerResponse, error) {
		attempts++
		resp, err := p.dispatcher.Trigger(ctx, channels, event, data, opts)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, protocol.ErrTransport) || errors.Is(err, context.Canceled) {
			return protocol.TriggerResponse{}, backoff.Permanent(err)
		}
		return protocol.TriggerResponse{}, err
	},
		backoff.WithBackOff(retry),
		backoff.WithMaxTries(p.opts.Retries+1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.logger.Debug("retrying event",
				logging.Field("event", event),
				logging.Field("error", err),
				logging.Field("next_retry", next.String()))
		}),
	)
	if err != nil {
		p.logger.Warn("event not published",
			logging.Field("event", event),
			logging.Field("channels", channels),
			logging.Field("attempts", attempts),
			logging.Field("error", err))
	}
	return resp, attempts, err
}
