// Package ui provides terminal output components for the daelim CLI.
//
// Components are rendered with Lipgloss and follow a "print once" pattern:
// a command prints a Header, does its work, then prints a Result box or a
// Table. The interactive dashboard lives in package dashboard and reuses
// the styles defined here.
//
//   - Header: command banner showing the operation and its parameters
//   - Result: success, failure and warning boxes with sorted details
//   - Table: column-aligned device and energy listings
//   - YearlyChart: monthly usage bars drawn with the bubbles progress bar
//   - Confirm: typed confirmation before switching everything off
//
// Logging is controlled by the DAELIM_LOG_LEVEL environment variable.
// When unset, zap logging is silent so the styled output stays clean.
package ui
