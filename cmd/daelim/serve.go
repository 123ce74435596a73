package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/bridge"
	"github.com/muurk/daelim/internal/config"
	"github.com/muurk/daelim/internal/dashboard"
	"github.com/muurk/daelim/internal/discovery"
	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/ui"
)

var (
	bridgeAddr      string
	bridgeAdvertise bool
	scanTimeout     time.Duration
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Serve the home over HTTP and WebSocket",
	Long: `Keep a session open, poll the apartment and serve its state to other
programs.

  GET  /api/state    latest snapshot as JSON
  POST /api/refresh  queue a refresh
  GET  /ws           state events and commands as JSON messages

The bridge listens on 127.0.0.1:8787 unless --addr or the bridge_addr
preference says otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		addr := bridgeAddr
		if addr == "" {
			addr = s.registry.Preferences.BridgeAddr
		}
		if addr == "" {
			addr = config.DefaultBridgeAddr
		}

		h := s.newHome(s.pollInterval(), true)
		defer h.Close()

		srv := bridge.New(&bridge.Config{
			Addr:      addr,
			Advertise: bridgeAdvertise,
		}, h)
		if err := srv.Start(); err != nil {
			return s.fail("Bridge failed to start", err)
		}

		s.out.PrintHeader("Bridge", "daelim bridge", s.params())
		s.out.PrintSuccess("Bridge listening", map[string]string{
			"Address": srv.Addr(),
			"Poll":    s.pollInterval().String(),
		})

		<-cmd.Context().Done()
		logging.Info("Shutting down bridge")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn("Bridge shutdown incomplete", zap.Error(err))
		}
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find apartment servers and bridges on the local network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := ui.NewPrinter(cmd.OutOrStdout())

		scanner := discovery.NewScanner()
		scanner.Timeout = scanTimeout
		services, err := scanner.Scan(cmd.Context())
		if err != nil {
			out.PrintError("Scan failed", err, []string{"mDNS needs multicast on the local interface"})
			return &reportedError{err: err}
		}
		if len(services) == 0 {
			out.PrintWarning("Nothing found", map[string]string{"Timeout": scanTimeout.String()})
			return nil
		}

		t := ui.NewTable("ROLE", "INSTANCE", "ADDRESS", "HOST")
		for _, svc := range services {
			t.AddRow(svc.Role, svc.Instance, svc.Address(), svc.Hostname)
		}
		out.PrintTable(t)
		return nil
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		h := s.newHome(s.pollInterval(), true)
		defer h.Close()
		return dashboard.Run(h)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import homes from a YAML or TOML file",
	Long: `Merge the homes of a YAML or TOML file into the registry. Entries with
the same name are updated; saved pins are kept unless the file has its own.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := ui.NewPrinter(cmd.OutOrStdout())

		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		names, err := registry.ImportFile(args[0])
		if err != nil {
			return err
		}
		if err := registry.Save(); err != nil {
			return err
		}

		details := make(map[string]string, len(names))
		for _, name := range names {
			details[name] = registry.Homes[name].Address()
		}
		out.PrintSuccess(fmt.Sprintf("Imported %s", plural(len(names), "home")), details)
		return nil
	},
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}

func init() {
	bridgeCmd.Flags().StringVar(&bridgeAddr, "addr", "", "Listen address (default: bridge_addr preference)")
	bridgeCmd.Flags().BoolVar(&bridgeAdvertise, "advertise", false, "Advertise the bridge over mDNS")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 5*time.Second, "How long to listen for answers")

	rootCmd.AddCommand(bridgeCmd, scanCmd, dashboardCmd, importCmd)
}
