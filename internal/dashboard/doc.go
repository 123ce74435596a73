// Package dashboard is the interactive terminal view of a home.
//
// It lists every device from the latest snapshot with bubbles/list,
// toggles the selected device with enter, steps brightness or heating
// targets with +/-, and arms or disarms guard mode after an optional code
// prompt. Commands run through the home's queue off the UI goroutine; a
// spinner shows while one is in flight. Snapshots published by the home,
// including those from a background poller, redraw the list as they
// arrive.
package dashboard
