package home

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
)

// Refresh queries every device, the guard mode and the monthly energy
// figures through the command queue, then publishes the new snapshot
func (h *Home) Refresh(ctx context.Context) (Snapshot, error) {
	res, err := h.do(ctx, "refresh", h.refresh)
	if err != nil {
		return Snapshot{}, err
	}
	snap := h.Snapshot()
	if !res.OK() {
		return snap, res.Err()
	}
	return snap, nil
}

// RequestRefresh queues a refresh without waiting for it. Requests made
// while one is already queued are coalesced.
func (h *Home) RequestRefresh() {
	if !h.refreshQueued.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer h.refreshQueued.Store(false)

		cmd, err := h.enqueue(h.ctx, "refresh", func(ctx context.Context) client.Result {
			h.refreshQueued.Store(false)
			return h.refresh(ctx)
		})
		if err != nil {
			logging.Debug("Refresh not queued", zap.Error(err))
			return
		}

		// a refresh dropped as stale never runs the func above
		timer := time.NewTimer(time.Until(cmd.deadline))
		defer timer.Stop()
		select {
		case <-cmd.done:
		case <-timer.C:
		case <-h.ctx.Done():
		}
	}()
}

func (h *Home) poll(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.RequestRefresh()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.RequestRefresh()
		}
	}
}

// refresh runs on the worker
func (h *Home) refresh(ctx context.Context) client.Result {
	if res := h.ensureConnected(ctx); !res.OK() {
		h.markUnavailable(res)
		return res
	}

	res := h.session.QueryAllDevices(ctx)
	if !res.OK() {
		if res.Error == protocol.CodeLocal {
			h.session.Disconnect()
		}
		h.markUnavailable(res)
		return res
	}

	states := make(map[string]protocol.Item)
	for _, it := range res.Items() {
		states[it.Key()] = it
	}

	guard := h.session.QueryGuardMode(ctx)
	queryDay, energy := ParseMonthly(h.session.QueryEnergyMonthly(ctx, "", ""))

	var yearly map[string]*YearlyEnergy
	if h.opts.YearlyEnergy {
		yearly = queryAllYearly(ctx, h.session)
	}

	h.mu.Lock()
	h.snapshot.Available = true
	h.snapshot.LoggedIn = h.session.LoggedIn()
	h.snapshot.UpdatedAt = time.Now()
	h.snapshot.Devices = buildDevices(h.catalog, states)
	h.snapshot.Error = ""
	if guard.OK() {
		h.snapshot.GuardMode = guard.Field("mode")
	}
	if energy != nil {
		h.snapshot.QueryDay = queryDay
		h.snapshot.Energy = energy
	}
	if yearly != nil {
		h.snapshot.Yearly = yearly
	}
	h.publish()
	h.mu.Unlock()

	logging.Debug("Refresh complete", zap.Int("devices", len(states)))
	return res
}

func (h *Home) markUnavailable(res client.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot.Available = false
	h.snapshot.LoggedIn = h.session.LoggedIn()
	h.snapshot.Error = res.Message()
	h.publish()
}
