package home

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
)

// EnergyUsage is one energy type's monthly figures
type EnergyUsage struct {
	Type     string  `json:"type"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Total    float64 `json:"total"`
	Average  float64 `json:"average"`
}

// YearlyEnergy is one energy type's usage across a year, with the
// household's ranking in the complex
type YearlyEnergy struct {
	Type       string    `json:"type"`
	Year       string    `json:"year"`
	Months     []float64 `json:"months"`
	Usage      float64   `json:"usage"`
	Average    float64   `json:"average"`
	Position   int       `json:"position"`
	Households int       `json:"households"`
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

func numberAt(list []any, i int) float64 {
	if i >= len(list) {
		return 0
	}
	return number(list[i])
}

// ParseMonthly reads a monthly energy response
func ParseMonthly(res client.Result) (string, []EnergyUsage) {
	if !res.OK() {
		return "", nil
	}
	list, _ := res.Body["item"].([]any)

	var out []EnergyUsage
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		values, _ := m["datavalue"].([]any)
		out = append(out, EnergyUsage{
			Type:     fmt.Sprint(m["type"]),
			Current:  numberAt(values, 0),
			Previous: numberAt(values, 1),
			Total:    numberAt(values, 2),
			Average:  numberAt(values, 3),
		})
	}
	return res.Field("queryday"), out
}

// ParseYearly reads a yearly energy graph response
func ParseYearly(res client.Result) *YearlyEnergy {
	if !res.OK() {
		return nil
	}
	values, _ := res.Body["datavalue"].([]any)
	rank, _ := res.Body["rank"].([]any)
	total, _ := res.Body["total"].([]any)

	y := &YearlyEnergy{
		Type:       res.Field("type"),
		Year:       res.Field("year"),
		Usage:      numberAt(rank, 0),
		Average:    numberAt(rank, 1),
		Position:   int(numberAt(total, 0)),
		Households: int(numberAt(total, 1)),
	}
	for _, v := range values {
		y.Months = append(y.Months, number(v))
	}
	return y
}

// queryAllYearly fetches the current year's graph for every energy type.
// A failing type maps to nil without affecting the others.
func queryAllYearly(ctx context.Context, s Session) map[string]*YearlyEnergy {
	out := make(map[string]*YearlyEnergy, len(protocol.EnergyTypes))
	for _, t := range protocol.EnergyTypes {
		res := s.QueryEnergyYear(ctx, t, "")
		if !res.OK() {
			logging.Debug("Yearly energy query failed",
				zap.String("type", t),
				zap.Int("code", res.Error))
			out[t] = nil
			continue
		}
		out[t] = ParseYearly(res)
	}
	return out
}

// QueryAllEnergyYearly fetches the yearly graph of every energy type
// through the command queue
func (h *Home) QueryAllEnergyYearly(ctx context.Context) (map[string]*YearlyEnergy, error) {
	var yearly map[string]*YearlyEnergy
	res, err := h.do(ctx, "energy-yearly", func(ctx context.Context) client.Result {
		if res := h.ensureConnected(ctx); !res.OK() {
			return res
		}
		yearly = queryAllYearly(ctx, h.session)
		return client.Result{Body: map[string]any{}}
	})
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, fmt.Errorf("yearly energy: %w", res.Err())
	}

	h.mu.Lock()
	h.snapshot.Yearly = yearly
	h.mu.Unlock()
	return yearly, nil
}
