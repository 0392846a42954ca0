package portfolio

import (
	"fmt"
	"strings"
)

// SellPolicy decides what happens to a SELL that is larger than the held quantity.
type SellPolicy int

const (
	// SellIgnore applies oversized sells as recorded. The holding goes to
	// zero or below and the position closes. Sells with nothing held are no-ops.
	SellIgnore SellPolicy = iota
	// SellClamp caps an oversized sell at the held quantity.
	SellClamp
	// SellReject skips an oversized sell entirely.
	SellReject
)

func (p SellPolicy) String() string {
	switch p {
	case SellIgnore:
		return "ignore"
	case SellClamp:
		return "clamp"
	case SellReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseSellPolicy parses a policy name.
func ParseSellPolicy(s string) (SellPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore", "":
		return SellIgnore, nil
	case "clamp":
		return SellClamp, nil
	case "reject":
		return SellReject, nil
	default:
		return 0, fmt.Errorf("unknown sell policy: %q", s)
	}
}
