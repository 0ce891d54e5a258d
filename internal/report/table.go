package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"quanta/internal/decision"
)

// RenderTable 将一次分析结果渲染为终端表格，用于 -once 模式直接输出。
func RenderTable(res *decision.Result) string {
	if res == nil {
		return ""
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s %s", res.Symbol, res.Interval))

	t.AppendHeader(table.Row{"因子", "得分", "关键指标"})
	m := res.Metrics
	t.AppendRows([]table.Row{
		{"趋势", score(res.Scores.Trend), fmt.Sprintf("slope=%.4f hurst=%.2f dir=%s", m.Trend.Slope, m.Trend.Hurst, m.Trend.Direction)},
		{"动量", score(res.Scores.Momentum), fmt.Sprintf("rsi=%.1f sharpe=%.2f roc=%.2f%%", m.Momentum.RSI, m.Momentum.Sharpe, m.Momentum.ROC)},
		{"波动", score(res.Scores.Volatility), fmt.Sprintf("hv=%.1f%% atr=%.4f regime=%s", m.Volatility.Historical, m.Volatility.ATR, m.Volatility.Regime)},
		{"量能", score(res.Scores.Volume), fmt.Sprintf("mfi=%.1f confirm=%s", m.Volume.MFI, m.Volume.Confirmation)},
		{"风险", score(res.Scores.Risk), fmt.Sprintf("beta=%.2f mdd=%.1f%% var95=%.2f%%", m.Risk.Beta, m.Risk.MaxDrawdown, m.Risk.VaR95)},
		{"情绪", score(res.Scores.Sentiment), "-"},
	})
	t.AppendSeparator()
	t.AppendFooter(table.Row{"综合", res.Composite, fmt.Sprintf("%s / %s / conf=%.0f", res.Signal, res.Regime, res.Confidence)})

	lines := []string{t.Render(), renderForecast(res)}
	if res.Stablecoin {
		lines = append(lines, "稳定币：综合分固定为 50，信号恒为 HOLD")
	}
	return strings.Join(lines, "\n")
}

func renderForecast(res *decision.Result) string {
	f := res.Forecast
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("预测")
	t.AppendRows([]table.Row{
		{"方向", f.Direction},
		{"概率", fmt.Sprintf("%.0f%%", f.Probability)},
		{"延续/反转", fmt.Sprintf("%.0f%% / %.0f%%", f.TrendContinuation, f.TrendReversal)},
		{"支撑/阻力", fmt.Sprintf("%.4f / %.4f", f.Support, f.Resistance)},
	})
	if f.PriceTarget != nil {
		t.AppendRow(table.Row{"目标价", fmt.Sprintf("%.4f", *f.PriceTarget)})
	}
	return t.Render()
}

func score(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	switch {
	case v >= 65:
		return text.FgGreen.Sprint(s)
	case v <= 35:
		return text.FgRed.Sprint(s)
	default:
		return s
	}
}
