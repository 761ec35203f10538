package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Cost is a monetary amount in micro-dollars. Integer storage keeps ledger sums exact.
type Cost int64

// MicrosPerDollar is the scale factor between Cost and dollars.
const MicrosPerDollar = 1_000_000

// CostFromDollars rounds a dollar amount to the nearest micro-dollar.
func CostFromDollars(d float64) Cost {
	return Cost(math.Round(d * MicrosPerDollar))
}

// CostForTokens prices tokens at a per-1k-token rate expressed in dollars.
func CostForTokens(tokens int, per1K float64) Cost {
	if tokens <= 0 || per1K <= 0 {
		return 0
	}
	return CostFromDollars(float64(tokens) / 1000 * per1K)
}

// Dollars converts back to a float for display.
func (c Cost) Dollars() float64 {
	return float64(c) / MicrosPerDollar
}

func (c Cost) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%06d", sign, v/MicrosPerDollar, v%MicrosPerDollar)
}

// MarshalJSON renders the amount as a decimal dollar string so no precision is lost.
func (c Cost) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatFloat(c.Dollars(), 'f', 6, 64))
}

// UnmarshalJSON accepts either a decimal string or a number of dollars.
func (c *Cost) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("cost %q: %w", v, err)
		}
		*c = CostFromDollars(f)
	case float64:
		*c = CostFromDollars(v)
	case nil:
		*c = 0
	default:
		return fmt.Errorf("cost: unsupported type %T", raw)
	}
	return nil
}
