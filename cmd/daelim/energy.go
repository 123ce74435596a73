package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/home"
	"github.com/muurk/daelim/internal/protocol"
	"github.com/muurk/daelim/internal/ui"
)

var (
	energyType  string
	energyYear  string
	energyMonth string
)

var energyCmd = &cobra.Command{
	Use:   "energy",
	Short: "Show energy usage",
}

// energyQuery logs in, runs one query and hands the result to render
func energyQuery(cmd *cobra.Command, title string, query func(ctx context.Context, s *session) client.Result,
	render func(s *session, res client.Result)) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := withTimeout(cmd)
	defer cancel()

	if err := s.login(ctx); err != nil {
		return err
	}

	res := query(ctx, s)
	if !res.OK() {
		return s.fail(title+" failed", res.Err())
	}
	s.out.PrintHeader(title, cmd.CommandPath(), s.params())
	render(s, res)
	return nil
}

var energyNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Show real-time usage of every energy type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return energyQuery(cmd, "Current energy usage",
			func(ctx context.Context, s *session) client.Result {
				return s.client.QueryEnergyNow(ctx)
			},
			func(s *session, res client.Result) {
				t := ui.NewTable("TYPE", "NOW")
				for _, u := range parseNow(res) {
					t.AddRow(u[0], u[1])
				}
				s.out.PrintTable(t)
			})
	},
}

// parseNow reads type and value pairs from a real-time usage response
func parseNow(res client.Result) [][2]string {
	list, _ := res.Body["item"].([]any)
	var out [][2]string
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		value := ""
		if values, _ := m["datavalue"].([]any); len(values) > 0 {
			value = fmt.Sprint(values[0])
		}
		out = append(out, [2]string{fmt.Sprint(m["type"]), value})
	}
	return out
}

var energyMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Show one month's usage of every energy type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return energyQuery(cmd, "Monthly energy usage",
			func(ctx context.Context, s *session) client.Result {
				return s.client.QueryEnergyMonthly(ctx, energyYear, energyMonth)
			},
			func(s *session, res client.Result) {
				day, usage := home.ParseMonthly(res)
				if day != "" {
					s.out.Println(ui.NoteStyle.Render("Query day: " + day))
				}
				s.out.PrintTable(ui.EnergyTable(usage))
			})
	},
}

var energyYearCmd = &cobra.Command{
	Use:   "year",
	Short: "Chart one energy type month by month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseEnergyType(energyType)
		if err != nil {
			return err
		}
		return energyQuery(cmd, "Yearly energy usage",
			func(ctx context.Context, s *session) client.Result {
				return s.client.QueryEnergyYear(ctx, kind, energyYear)
			},
			func(s *session, res client.Result) {
				s.out.Println(ui.YearlyChart(home.ParseYearly(res), s.out.Width()))
			})
	},
}

var energyMonthCmd = &cobra.Command{
	Use:   "month",
	Short: "Show one energy type day by day",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseEnergyType(energyType)
		if err != nil {
			return err
		}
		return energyQuery(cmd, "Daily energy usage",
			func(ctx context.Context, s *session) client.Result {
				return s.client.QueryEnergyMonth(ctx, kind, energyYear, energyMonth)
			},
			func(s *session, res client.Result) {
				values, _ := res.Body["datavalue"].([]any)
				t := ui.NewTable("DAY", strings.ToUpper(kind))
				for i, v := range values {
					t.AddRow(itoa(i+1), fmt.Sprint(v))
				}
				s.out.PrintTable(t)
			})
	},
}

// parseEnergyType matches a type name case-insensitively
func parseEnergyType(s string) (string, error) {
	if s == "" {
		return protocol.EnergyElec, nil
	}
	for _, t := range protocol.EnergyTypes {
		if strings.EqualFold(s, t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown energy type %q (want one of %s)", s, strings.Join(protocol.EnergyTypes, ", "))
}

func init() {
	for _, c := range []*cobra.Command{energyMonthlyCmd, energyYearCmd, energyMonthCmd} {
		c.Flags().StringVar(&energyYear, "year", "", "Year (default: this year)")
	}
	for _, c := range []*cobra.Command{energyMonthlyCmd, energyMonthCmd} {
		c.Flags().StringVar(&energyMonth, "month", "", "Month 1-12 (default: this month)")
	}
	for _, c := range []*cobra.Command{energyYearCmd, energyMonthCmd} {
		c.Flags().StringVar(&energyType, "type", protocol.EnergyElec, "Energy type: "+strings.Join(protocol.EnergyTypes, ", "))
	}

	energyCmd.AddCommand(energyNowCmd, energyMonthlyCmd, energyYearCmd, energyMonthCmd)
	rootCmd.AddCommand(energyCmd)
}
