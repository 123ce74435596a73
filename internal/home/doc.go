// Package home is the application layer over one protocol session.
//
// A Home owns a single command worker. Every operation, whether a user
// command, a poll or an energy query, is queued and run on that worker
// in order, so a poll never interleaves with a control command at the
// application level. Each command is bounded by QueueTimeout from the
// moment it is queued; work still queued past its deadline is dropped
// without touching the session.
//
// The Home keeps a Snapshot of device states, guard mode and energy
// figures. Refreshes rebuild it from a batched device query; control
// responses update it immediately. Subscribers receive every new
// snapshot, and the bridge forwards them to WebSocket clients.
//
//	h := home.New(c, home.Options{UserID: id, Password: pw, PollInterval: 30 * time.Second})
//	h.Start()
//	defer h.Close()
//	res, err := h.SetLight(ctx, "012611", protocol.StateOn, 200)
package home
