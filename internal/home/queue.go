package home

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/logging"
)

// command is one queued application operation
type command struct {
	name     string
	ctx      context.Context
	deadline time.Time
	run      func(ctx context.Context) client.Result
	done     chan client.Result
}

// enqueue queues fn without waiting for it to run
func (h *Home) enqueue(ctx context.Context, name string, fn func(context.Context) client.Result) (*command, error) {
	cmd := &command{
		name:     name,
		ctx:      ctx,
		deadline: time.Now().Add(h.opts.QueueTimeout),
		run:      fn,
		done:     make(chan client.Result, 1),
	}

	timer := time.NewTimer(h.opts.QueueTimeout)
	defer timer.Stop()

	select {
	case h.queue <- cmd:
		return cmd, nil
	case <-h.ctx.Done():
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrQueueTimeout
	}
}

// do runs fn on the command worker and waits for its result. The wait,
// including time spent queued, is bounded by the queue timeout.
func (h *Home) do(ctx context.Context, name string, fn func(context.Context) client.Result) (client.Result, error) {
	cmd, err := h.enqueue(ctx, name, fn)
	if err != nil {
		return client.Result{}, err
	}

	timer := time.NewTimer(time.Until(cmd.deadline))
	defer timer.Stop()

	select {
	case res := <-cmd.done:
		return res, nil
	case <-h.ctx.Done():
		return client.Result{}, ErrClosed
	case <-ctx.Done():
		return client.Result{}, ctx.Err()
	case <-timer.C:
		logging.Warn("Command timed out in queue", zap.String("command", name))
		return client.Result{}, ErrQueueTimeout
	}
}

// worker runs queued commands one at a time. Commands whose deadline
// passed while queued are dropped without touching the session.
func (h *Home) worker() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case cmd := <-h.queue:
			h.execute(cmd)
		}
	}
}

func (h *Home) execute(cmd *command) {
	if time.Now().After(cmd.deadline) || cmd.ctx.Err() != nil {
		logging.Debug("Dropping stale command", zap.String("command", cmd.name))
		return
	}

	ctx, cancel := context.WithDeadline(cmd.ctx, cmd.deadline)
	defer cancel()
	stop := context.AfterFunc(h.ctx, cancel)
	defer stop()

	start := time.Now()
	res := cmd.run(ctx)
	h.persistSession()

	logging.Debug("Command finished",
		zap.String("command", cmd.name),
		zap.Int("code", res.Error),
		zap.Duration("duration", time.Since(start)))
	cmd.done <- res
}
