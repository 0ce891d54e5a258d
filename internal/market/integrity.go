package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Gap 表示缺失的连续 K 线区间（毫秒时间戳，闭区间）。
type Gap struct {
	From  int64 `json:"from"`
	To    int64 `json:"to"`
	Count int64 `json:"count"`
}

// IntervalDuration 把 1m/1h/4h/1d/1w 这类周期标签解析为时长。
func IntervalDuration(interval string) (time.Duration, error) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	var unit time.Duration
	switch interval[len(interval)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	return time.Duration(n) * unit, nil
}

// CheckContinuity 检查升序 K 线序列在给定周期下是否连续，返回全部缺口。
// 序列乱序或重复视为硬错误。
func CheckContinuity(candles []Candle, interval string) ([]Gap, error) {
	if len(candles) < 2 {
		return nil, nil
	}
	d, err := IntervalDuration(interval)
	if err != nil {
		return nil, err
	}
	step := d.Milliseconds()

	var gaps []Gap
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1].OpenTime, candles[i].OpenTime
		if cur <= prev {
			return nil, fmt.Errorf("candles out of order at index %d: %d then %d", i, prev, cur)
		}
		missing := (cur-prev)/step - 1
		if (cur-prev)%step != 0 {
			return nil, fmt.Errorf("candle at index %d off the %s grid: %d -> %d", i, interval, prev, cur)
		}
		if missing > 0 {
			gaps = append(gaps, Gap{
				From:  prev + step,
				To:    cur - step,
				Count: missing,
			})
		}
	}
	return gaps, nil
}
