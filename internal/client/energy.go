package client

import (
	"context"
	"strconv"

	"github.com/muurk/daelim/internal/protocol"
)

type energyMonthlyRequest struct {
	Year  string `json:"year"`
	Month string `json:"month"`
}

type energyGraphRequest struct {
	Type  string `json:"type"`
	Gubun string `json:"gubun"`
	Year  string `json:"year"`
	Month string `json:"month"`
}

// defaultDate fills an empty year or month from the current date. Months
// are not zero-padded.
func (c *Client) defaultDate(year, month string) (string, string) {
	now := c.now()
	if year == "" {
		year = strconv.Itoa(now.Year())
	}
	if month == "" {
		month = strconv.Itoa(int(now.Month()))
	}
	return year, month
}

// QueryEnergyNow returns real-time usage
func (c *Client) QueryEnergyNow(ctx context.Context) Result {
	return c.sendWithAutoRelogin(ctx, protocol.TypeEnergy, protocol.SubtypeEnergyNowReq, emptyPayload, c.QueryTimeout)
}

// QueryEnergyMonthly returns every energy type's usage for one month.
// Empty year or month default to the current date.
func (c *Client) QueryEnergyMonthly(ctx context.Context, year, month string) Result {
	year, month = c.defaultDate(year, month)
	return c.sendWithAutoRelogin(ctx, protocol.TypeEnergy, protocol.SubtypeEnergyMonthlyReq,
		energyMonthlyRequest{Year: year, Month: month}, c.QueryTimeout)
}

// QueryEnergyYear returns the month-by-month graph of one energy type for
// a year.
func (c *Client) QueryEnergyYear(ctx context.Context, energyType, year string) Result {
	if energyType == "" {
		energyType = protocol.EnergyElec
	}
	year, _ = c.defaultDate(year, "")
	return c.sendWithAutoRelogin(ctx, protocol.TypeEnergy, protocol.SubtypeEnergyGraphReq,
		energyGraphRequest{Type: energyType, Gubun: "year", Year: year, Month: ""}, c.QueryTimeout)
}

// QueryEnergyMonth returns the day-by-day graph of one energy type for a
// month.
func (c *Client) QueryEnergyMonth(ctx context.Context, energyType, year, month string) Result {
	if energyType == "" {
		energyType = protocol.EnergyElec
	}
	year, month = c.defaultDate(year, month)
	return c.sendWithAutoRelogin(ctx, protocol.TypeEnergy, protocol.SubtypeEnergyGraphReq,
		energyGraphRequest{Type: energyType, Gubun: "month", Year: year, Month: month}, c.QueryTimeout)
}
