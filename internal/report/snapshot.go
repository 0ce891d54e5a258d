package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const snapshotTimeout = 30 * time.Second

// SnapshotPNG 用无头浏览器把 HTML 报告渲染成 PNG，便于推送到 IM。
// 环境里没有可用的 Chrome 时返回错误，调用方可降级为只留 HTML。
func SnapshotPNG(ctx context.Context, htmlPath string) (string, error) {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("html report not found: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	browserCtx, cancelBrowser := chromedp.NewContext(ctx)
	defer cancelBrowser()

	var buf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate("file://" + abs),
		chromedp.Sleep(time.Second),
		chromedp.FullScreenshot(&buf, 90),
	}
	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return "", fmt.Errorf("render snapshot: %w", err)
	}

	pngPath := strings.TrimSuffix(abs, filepath.Ext(abs)) + ".png"
	if err := os.WriteFile(pngPath, buf, 0o644); err != nil {
		return "", err
	}
	return pngPath, nil
}
