package domain

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount coerces a loosely typed monetary input to a decimal. Missing,
// null or unparseable input yields zero; NaN and infinities never escape.
func ParseAmount(v any) decimal.Decimal {
	switch val := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return val
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero
		}
		return *val
	case json.Number:
		return parseAmountString(val.String())
	case string:
		return parseAmountString(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(val)
	case float32:
		return ParseAmount(float64(val))
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case json.RawMessage:
		return parseAmountJSON(val)
	case []byte:
		return parseAmountJSON(val)
	default:
		return decimal.Zero
	}
}

func parseAmountString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseAmountJSON(raw []byte) decimal.Decimal {
	var d decimal.NullDecimal
	if err := json.Unmarshal(raw, &d); err != nil || !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
