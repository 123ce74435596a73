// Daelim controls a Daelim apartment home-automation server from the
// command line.
//
// It logs in with the credentials of the mobile app, remembers the session
// pins and device catalog in the registry, and exposes every control the
// server offers: lights, heating, gas, fans, wall sockets, guard mode, the
// elevator and energy usage. It can also serve the home to other programs
// over a local HTTP/WebSocket bridge, or show it in an interactive
// dashboard.
//
// Usage:
//
//	daelim [command] [flags]
//
// See 'daelim --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logging.Sync()
	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// Global flags
var (
	homeName     string
	serverHost   string
	serverPort   int
	userID       string
	password     string
	guardProfile string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "daelim",
	Short: "Daelim apartment home-automation client",
	Long: `A command-line client for Daelim apartment home-automation servers.

The first login needs the server address, the user id and the password of
the mobile app. The session pins and the device catalog are saved so later
commands reconnect without the password.

Set DAELIM_LOG_LEVEL (debug, info, warn, error) to see protocol logs.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			return logging.Initialize(logLevel)
		}
		return logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&homeName, "home", "", "Registry entry to use (default: the default home)")
	rootCmd.PersistentFlags().StringVar(&serverHost, "host", "", "Server host (saved to the home entry)")
	rootCmd.PersistentFlags().IntVar(&serverPort, "port", 0, "Server port (default 25301)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "User id of the mobile app account")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Password (or set "+passwordEnvVar+"; prompted when needed)")
	rootCmd.PersistentFlags().StringVar(&guardProfile, "guard-profile", "", "Guard subtypes: standard, v5, v6, v8 or custom:Q/S")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "daelim %s\n%s\n", version.Full(), version.Protocol())
	},
}
