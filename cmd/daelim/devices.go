package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/home"
	"github.com/muurk/daelim/internal/protocol"
	"github.com/muurk/daelim/internal/ui"
)

var (
	loginFresh    bool
	loginDiscover bool
	devicesJSON   bool
	brightness    int
	temperature   int
	fanSpeed      string
	fanMode       string
	assumeYes     bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session",
	Long: `Log in to the apartment server and save the session pins and device
catalog to the registry.

Saved pins are tried first. Use --fresh to discard them and log in with
the password. With --discover and no configured host, the first server
advertised over mDNS is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		s.out.PrintHeader("Login", "daelim login", s.params())

		ctx, cancel := withTimeout(cmd)
		defer cancel()
		if err := s.login(ctx); err != nil {
			return err
		}

		s.out.PrintSuccess("Logged in", map[string]string{
			"Devices": itoa(s.client.ControlInfo().Count()),
			"UUID":    s.entry.UUID,
		})
		return nil
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List every device with its state",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := withTimeout(cmd)
		defer cancel()

		h := s.newHome(0, false)
		defer h.Close()

		snap, err := h.Refresh(ctx)
		if err != nil {
			return s.fail("Device query failed", err)
		}

		if devicesJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		s.out.PrintHeader("Devices", "daelim devices", s.params())
		s.out.PrintTable(ui.DeviceTable(snap.Devices))
		s.out.Newline()
		s.out.Println(fmt.Sprintf("Guard mode: %s", ui.GuardLabel(snap.GuardMode)))
		if len(snap.Energy) > 0 {
			s.out.Newline()
			s.out.PrintTable(ui.EnergyTable(snap.Energy))
		}
		return nil
	},
}

// control runs one command through the home layer and reports its result
func control(cmd *cobra.Command, title string, details map[string]string,
	op func(ctx context.Context, h *home.Home) (client.Result, error)) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := withTimeout(cmd)
	defer cancel()

	h := s.newHome(0, false)
	defer h.Close()

	res, err := op(ctx, h)
	return s.check(title, res, err, details)
}

var lightCmd = &cobra.Command{
	Use:   "light <uid|all> <on|off>",
	Short: "Switch a light or every light",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid := args[0]
		state, err := parseSwitch(args[1])
		if err != nil {
			return err
		}
		level := optionalInt(cmd, "brightness", brightness)
		if level != client.Unset && (level < 0 || level > 255) {
			return fmt.Errorf("brightness must be between 0 and 255")
		}

		details := map[string]string{"Light": uid, "State": state}
		if level != client.Unset {
			details["Brightness"] = itoa(level)
		}
		return control(cmd, "Light switched", details, func(ctx context.Context, h *home.Home) (client.Result, error) {
			if strings.EqualFold(uid, "all") {
				return h.SetLightAll(ctx, state)
			}
			return h.SetLight(ctx, uid, state, level)
		})
	},
}

var heatingCmd = &cobra.Command{
	Use:   "heating <uid> <on|off>",
	Short: "Switch a heating zone and set its temperature",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid := args[0]
		state, err := parseSwitch(args[1])
		if err != nil {
			return err
		}
		temp := optionalInt(cmd, "temp", temperature)

		details := map[string]string{"Zone": uid, "State": state}
		if temp != client.Unset {
			details["Temperature"] = itoa(temp) + "°C"
		}
		return control(cmd, "Heating switched", details, func(ctx context.Context, h *home.Home) (client.Result, error) {
			return h.SetHeating(ctx, uid, state, temp)
		})
	},
}

var gasCmd = &cobra.Command{
	Use:   "gas <uid> off",
	Short: "Close a gas valve",
	Long: `Close a gas valve. Valves can only be opened by hand, so the only
accepted state is off.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid := args[0]
		state, err := parseSwitch(args[1])
		if err != nil {
			return err
		}
		if state != protocol.StateOff {
			return fmt.Errorf("gas valves can only be closed remotely")
		}
		return control(cmd, "Gas valve closed", map[string]string{"Valve": uid}, func(ctx context.Context, h *home.Home) (client.Result, error) {
			return h.SetGas(ctx, uid, state)
		})
	},
}

var fanCmd = &cobra.Command{
	Use:   "fan <uid> <on|off>",
	Short: "Switch the ventilation fan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid := args[0]
		state, err := parseSwitch(args[1])
		if err != nil {
			return err
		}

		details := map[string]string{"Fan": uid, "State": state}
		if fanSpeed != "" {
			details["Speed"] = fanSpeed
		}
		if fanMode != "" {
			details["Mode"] = fanMode
		}
		return control(cmd, "Fan switched", details, func(ctx context.Context, h *home.Home) (client.Result, error) {
			return h.SetFan(ctx, uid, state, fanSpeed, fanMode)
		})
	},
}

var wallsocketCmd = &cobra.Command{
	Use:   "wallsocket <uid> <on|off>",
	Short: "Switch a wall socket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid := args[0]
		state, err := parseSwitch(args[1])
		if err != nil {
			return err
		}
		return control(cmd, "Wall socket switched", map[string]string{"Socket": uid, "State": state},
			func(ctx context.Context, h *home.Home) (client.Result, error) {
				return h.SetWallsocket(ctx, uid, state)
			})
	},
}

var allOffCmd = &cobra.Command{
	Use:   "all-off",
	Short: "Switch every device off",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !assumeYes && !ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Switch everything off?", ui.AllOffWarnings) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
		return control(cmd, "All devices switched off", nil, func(ctx context.Context, h *home.Home) (client.Result, error) {
			return h.AllOff(ctx)
		})
	},
}

var elevatorCmd = &cobra.Command{
	Use:   "elevator",
	Short: "Call the elevator to the apartment's floor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return control(cmd, "Elevator called", nil, func(ctx context.Context, h *home.Home) (client.Result, error) {
			return h.CallElevator(ctx)
		})
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginFresh, "fresh", false, "Discard saved pins and log in with the password")
	loginCmd.Flags().BoolVar(&loginDiscover, "discover", false, "Find the server over mDNS when no host is configured")
	devicesCmd.Flags().BoolVar(&devicesJSON, "json", false, "Print the snapshot as JSON")
	lightCmd.Flags().IntVar(&brightness, "brightness", 0, "Brightness 0-255 for dimmable lights")
	heatingCmd.Flags().IntVar(&temperature, "temp", 0, "Target temperature in °C")
	fanCmd.Flags().StringVar(&fanSpeed, "speed", "", "Fan speed code")
	fanCmd.Flags().StringVar(&fanMode, "mode", "", "Fan mode code")
	allOffCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation")

	rootCmd.AddCommand(loginCmd, devicesCmd, lightCmd, heatingCmd, gasCmd, fanCmd, wallsocketCmd, allOffCmd, elevatorCmd)
}
