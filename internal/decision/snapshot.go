package decision

import (
	"math"

	"github.com/markcheno/go-talib"
)

// Snapshot is a talib-backed display companion to a Result: the classic
// oscillator/EMA readings dashboards expect next to the factor scores. It is
// never an input to the composite.
type Snapshot struct {
	EMAFast   SnapshotLevel `json:"ema_fast"`
	EMAMid    SnapshotLevel `json:"ema_mid"`
	EMASlow   SnapshotLevel `json:"ema_slow"`
	EMALong   SnapshotLevel `json:"ema_long"`
	StochK    float64       `json:"stoch_k"`
	StochD    float64       `json:"stoch_d"`
	WilliamsR float64       `json:"williams_r"`
	OBV       float64       `json:"obv"`
	OBVState  string        `json:"obv_state"`
}

// SnapshotLevel pairs an indicator value with its relation to price.
type SnapshotLevel struct {
	Value float64 `json:"value"`
	State string  `json:"state"`
}

var snapshotEMAPeriods = struct{ Fast, Mid, Slow, Long int }{21, 55, 100, 200}

// BuildSnapshot computes the display snapshot; nil when the series is empty.
func BuildSnapshot(closes, highs, lows, volumes []float64) *Snapshot {
	if len(closes) == 0 || len(highs) != len(closes) || len(lows) != len(closes) || len(volumes) != len(closes) {
		return nil
	}
	lastClose := closes[len(closes)-1]
	snap := &Snapshot{
		EMAFast: emaLevel(closes, snapshotEMAPeriods.Fast, lastClose),
		EMAMid:  emaLevel(closes, snapshotEMAPeriods.Mid, lastClose),
		EMASlow: emaLevel(closes, snapshotEMAPeriods.Slow, lastClose),
		EMALong: emaLevel(closes, snapshotEMAPeriods.Long, lastClose),
	}
	if len(closes) >= 20 {
		k, d := talib.Stoch(highs, lows, closes, 14, 3, talib.SMA, 3, talib.SMA)
		snap.StochK = lastValid(k)
		snap.StochD = lastValid(d)
		snap.WilliamsR = lastValid(talib.WillR(highs, lows, closes, 14))
	}
	obv := talib.Obv(closes, volumes)
	snap.OBV = lastValid(obv)
	snap.OBVState = obvState(obv)
	return snap
}

func emaLevel(closes []float64, period int, lastClose float64) SnapshotLevel {
	if len(closes) < period {
		return SnapshotLevel{State: "unknown"}
	}
	v := lastValid(talib.Ema(closes, period))
	return SnapshotLevel{Value: v, State: relativeState(lastClose, v)}
}

func relativeState(price, ref float64) string {
	if ref == 0 {
		return "unknown"
	}
	switch {
	case price > ref*1.002:
		return "above"
	case price < ref*0.998:
		return "below"
	default:
		return "touch"
	}
}

func obvState(obv []float64) string {
	if len(obv) < 2 {
		return "flat"
	}
	d := obv[len(obv)-1] - obv[len(obv)-2]
	switch {
	case d > 0:
		return "positive"
	case d < 0:
		return "negative"
	default:
		return "flat"
	}
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}
