// Daelim-sim is an in-process apartment server speaking the Daelim wire
// protocol.
//
// It answers logins, device queries and controls, guard mode, elevator
// calls and energy queries from an in-memory apartment, so the client,
// bridge and dashboard can be exercised without a real wallpad.
//
// Usage:
//
//	daelim-sim serve [flags]
//
// See 'daelim-sim serve --help' for available options.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
	"github.com/muurk/daelim/internal/simulator"
	"github.com/muurk/daelim/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "daelim-sim",
	Short: "Daelim apartment server simulator",
	Long: `A simulated Daelim apartment server for development and testing.

The simulator keeps device, guard and elevator state in memory and issues
its own session pins. Use a fixture file to describe a different
apartment.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	host         string
	port         int
	userID       string
	password     string
	fixturePath  string
	guardProfile string
	latency      time.Duration
	advertise    bool
	instanceName string
	logLevel     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the simulated server",
	Long: `Start the simulated apartment server and serve until interrupted.

A fixture file (YAML or TOML) may set user_id, password, guard_profile and
controlinfo. Flags given on the command line win over the fixture.`,
	Example: `  # Serve the default apartment on the standard port
  daelim-sim serve

  # Serve a custom apartment with an older guard profile
  daelim-sim serve --fixture apartment.yaml --guard-profile v5

  # Imitate a slow wallpad and advertise over mDNS
  daelim-sim serve --latency 500ms --advertise`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&host, "host", "", "Listen host (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", protocol.DefaultPort, "Listen port")
	serveCmd.Flags().StringVar(&userID, "user", "demo", "Accepted user id")
	serveCmd.Flags().StringVar(&password, "password", "demo", "Accepted password")
	serveCmd.Flags().StringVar(&fixturePath, "fixture", "", "Apartment fixture file (.yaml, .yml or .toml)")
	serveCmd.Flags().StringVar(&guardProfile, "guard-profile", "", "Guard subtypes answered: standard, v5, v6, v8 or custom:Q/S")
	serveCmd.Flags().DurationVar(&latency, "latency", 0, "Delay added to every response")
	serveCmd.Flags().BoolVar(&advertise, "advertise", false, "Advertise the server over mDNS")
	serveCmd.Flags().StringVar(&instanceName, "name", "daelim-sim", "mDNS instance name")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	cfg := &simulator.Config{
		Host:         host,
		Port:         port,
		UserID:       userID,
		Password:     password,
		Latency:      latency,
		Advertise:    advertise,
		InstanceName: instanceName,
	}

	if fixturePath != "" {
		if err := simulator.LoadFixture(fixturePath, cfg); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("user") {
		cfg.UserID = userID
	}
	if flags.Changed("password") {
		cfg.Password = password
	}
	if flags.Changed("guard-profile") || cfg.GuardProfile == (protocol.GuardProfile{}) {
		p, err := protocol.ParseGuardProfile(guardProfile)
		if err != nil {
			return err
		}
		cfg.GuardProfile = p
	}

	logging.Info("Starting simulator",
		zap.String("user", cfg.UserID),
		zap.String("guard_profile", cfg.GuardProfile.String()),
		zap.Int("port", cfg.Port))

	return simulator.New(cfg).Run(cmd.Context())
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "daelim-sim %s\n%s\n", version.Full(), version.Protocol())
	},
}
