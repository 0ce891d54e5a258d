package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"quanta/internal/decision"
	"quanta/internal/market"
)

// WriteHTML 生成单币种的 K 线 + 因子得分 HTML 报告，返回文件路径。
func WriteHTML(dir string, res *decision.Result, candles []market.Candle) (string, error) {
	if res == nil {
		return "", fmt.Errorf("result is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.html", res.Symbol, res.Interval))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	kline := klineChart(res, candles)
	if err := kline.Render(f); err != nil {
		return "", err
	}
	bar := scoreChart(res)
	if err := bar.Render(f); err != nil {
		return "", err
	}
	return path, nil
}

func klineChart(res *decision.Result, candles []market.Candle) *charts.Kline {
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s %s", res.Symbol, res.Interval),
			Subtitle: fmt.Sprintf("composite=%d signal=%s regime=%s", res.Composite, res.Signal, res.Regime),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 50, End: 100}),
	)

	x := make([]string, 0, len(candles))
	y := make([]opts.KlineData, 0, len(candles))
	for _, c := range candles {
		x = append(x, time.UnixMilli(c.OpenTime).UTC().Format("01-02 15:04"))
		// echarts 蜡烛图取值顺序固定为 [open, close, low, high]
		y = append(y, opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}})
	}
	kline.SetXAxis(x).AddSeries(res.Symbol, y)
	return kline
}

func scoreChart(res *decision.Result) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "因子得分"}))
	s := res.Scores
	bar.SetXAxis([]string{"trend", "momentum", "volatility", "volume", "risk", "sentiment", "composite"}).
		AddSeries("score", []opts.BarData{
			{Value: s.Trend},
			{Value: s.Momentum},
			{Value: s.Volatility},
			{Value: s.Volume},
			{Value: s.Risk},
			{Value: s.Sentiment},
			{Value: res.Composite},
		})
	return bar
}
