package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"phoenix-rest/internal/config"
	"phoenix-rest/internal/logging"
	"phoenix-rest/internal/runstatus"
)

type Controller struct {
	rootCtx context.Context
	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

type StartHooks struct {
	OnStatus func(string)
	OnExit   func(error)
}

func NewController(rootCtx context.Context) *Controller {
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	return &Controller{rootCtx: rootCtx}
}

// Start runs the auth service in the background until Stop is called or
// the root context ends.
func (c *Controller) Start(opts config.Options, settings ServeSettings, logger *logging.Logger, hooks StartHooks) error {
	if logger == nil {
		panic("runtime.Controller.Start: logger must not be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("auth service is already running")
	}
	logger.Debug("runtime start requested",
		logging.Field("addr", settings.Addr),
		logging.Field("profile", settings.ProfilePath),
		logging.Field("has_status_hook", hooks.OnStatus != nil),
	)
	if hooks.OnStatus != nil {
		hooks.OnStatus(runstatus.Starting)
	}

	service, err := NewServiceWithHooks(opts, settings, logger, hooks)
	if err != nil {
		return err
	}

	parent := c.rootCtx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	c.cancel = cancel
	c.running = true
	c.wg.Go(func() {
		defer cancel()
		runErr := service.RunContext(ctx)
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			logger.Debug("auth service stopped", logging.Field("error", runErr))
		} else if runErr != nil {
			logger.Warn("auth service failed", logging.Field("error", runErr))
		} else {
			logger.Info("auth service exited")
		}
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()

		if hooks.OnExit != nil {
			hooks.OnExit(runErr)
		}
	})

	return nil
}

func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) Wait(timeout time.Duration) bool {
	waitDone := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(waitDone)
	}()
	if timeout <= 0 {
		<-waitDone
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-waitDone:
		return true
	case <-timer.C:
		return false
	}
}

func (c *Controller) StopAndWait(timeout time.Duration) bool {
	c.Stop()
	return c.Wait(timeout)
}

func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
