package decision

import (
	"math"
	"strings"
)

// Known stable-asset tickers, matched as symbol prefixes (BUSD matches
// BUSDUSDT). Any symbol beginning with USDT matches regardless of the list.
var stableTickers = []string{
	"USDT", "USDC", "BUSD", "DAI", "TUSD", "FDUSD", "USDP",
	"GUSD", "FRAX", "LUSD", "USDD", "PYUSD", "USDE", "EURS",
}

const (
	// within this distance of $1.00 the asset is treated as a stablecoin
	// on price alone
	stableTightBand = 0.05
	// looser band that still counts when the name also hints at a stable
	stableLooseBand = 0.15
)

// IsStablecoin is the one canonical predicate shared by the composite
// override, the signal override and any upstream routing. Either a name
// match or tight price proximity to $1.00 alone is sufficient; the loose
// price band needs a stable-ticker substring in the name as well.
func IsStablecoin(symbol string, lastPrice float64) bool {
	name := strings.ToUpper(strings.TrimSpace(symbol))
	nameHit := strings.HasPrefix(name, "USDT")
	nameHint := nameHit
	for _, t := range stableTickers {
		if strings.HasPrefix(name, t) {
			nameHit = true
		}
		if strings.Contains(name, t) {
			nameHint = true
		}
	}
	if nameHit {
		return true
	}
	dist := math.Abs(lastPrice - 1)
	if dist <= stableTightBand {
		return true
	}
	return nameHint && dist <= stableLooseBand
}
