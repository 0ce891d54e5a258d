package factor

import "quanta/internal/analysis/stat"

// Confirmation labels how volume relates to the latest price move.
type Confirmation string

const (
	ConfirmStrongUp   Confirmation = "strong_up"
	ConfirmWeakUp     Confirmation = "weak_up"
	ConfirmStrongDown Confirmation = "strong_down"
	ConfirmWeakDown   Confirmation = "weak_down"
	ConfirmNeutral    Confirmation = "neutral"
)

const (
	volumeZWindow = 20
	mfiPeriod     = 14

	// volume z-score above this counts as conviction behind the move
	confirmVolumeGate = 0.5
)

// VolumeMetrics bundles the raw volume estimators for one series.
type VolumeMetrics struct {
	ZScore       float64      `json:"z_score"`
	MFI          float64      `json:"mfi"`
	Confirmation Confirmation `json:"confirmation"`
}

// ComputeVolume evaluates volume pressure against the aligned price series.
func ComputeVolume(prices, highs, lows, volumes []float64) VolumeMetrics {
	vz := volumeZScore(volumes, volumeZWindow)
	return VolumeMetrics{
		ZScore:       vz,
		MFI:          MoneyFlowIndex(highs, lows, prices, volumes, mfiPeriod),
		Confirmation: classifyConfirmation(prices, vz),
	}
}

func volumeZScore(volumes []float64, window int) float64 {
	if len(volumes) == 0 {
		return 0
	}
	if window > len(volumes) {
		window = len(volumes)
	}
	tail := volumes[len(volumes)-window:]
	sd := stat.StdDev(tail)
	if sd == 0 {
		return 0
	}
	return (volumes[len(volumes)-1] - stat.Mean(tail)) / sd
}

// MoneyFlowIndex is the volume-weighted RSI analog on the typical price.
// All money flowing one way returns the corresponding extreme (100/0).
func MoneyFlowIndex(highs, lows, closes, volumes []float64, period int) float64 {
	n := len(closes)
	if n < 2 || len(highs) != n || len(lows) != n || len(volumes) != n || period <= 0 {
		return 50
	}
	start := n - period - 1
	if start < 0 {
		start = 0
	}
	typical := func(i int) float64 { return (highs[i] + lows[i] + closes[i]) / 3 }
	var positive, negative float64
	for i := start + 1; i < n; i++ {
		tp := typical(i)
		flow := tp * volumes[i]
		switch {
		case tp > typical(i-1):
			positive += flow
		case tp < typical(i-1):
			negative += flow
		}
	}
	if negative == 0 {
		return 100
	}
	if positive == 0 {
		return 0
	}
	ratio := positive / negative
	return 100 - 100/(1+ratio)
}

func classifyConfirmation(prices []float64, volumeZ float64) Confirmation {
	if len(prices) < 2 {
		return ConfirmNeutral
	}
	change := prices[len(prices)-1] - prices[len(prices)-2]
	strong := volumeZ > confirmVolumeGate
	switch {
	case change > 0 && strong:
		return ConfirmStrongUp
	case change > 0:
		return ConfirmWeakUp
	case change < 0 && strong:
		return ConfirmStrongDown
	case change < 0:
		return ConfirmWeakDown
	default:
		return ConfirmNeutral
	}
}
