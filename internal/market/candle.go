package market

// Candle 单根 K 线（时间戳为毫秒）。
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades,omitempty"`
}

// Series 将 K 线序列拆成收盘价与成交量两条平行数组；
// OHLC 形态由调用方按其自身的 bar 类型转换。
type Series struct {
	Closes  []float64
	Volumes []float64
}

// Split 按时间升序拆分 K 线数组。
func Split(candles []Candle) Series {
	s := Series{
		Closes:  make([]float64, len(candles)),
		Volumes: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.Closes[i] = c.Close
		s.Volumes[i] = c.Volume
	}
	return s
}
