package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/szhangbiao/price-crawler/internal/market"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: price-crawler\n"))
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	if cfg.Monitor.TickInterval != 10*time.Second {
		t.Fatalf("默认主循环间隔应为 10s, 实际 %s", cfg.Monitor.TickInterval)
	}
	if cfg.Monitor.GoldInterval != 30*time.Minute {
		t.Fatalf("默认黄金间隔应为 30m, 实际 %s", cfg.Monitor.GoldInterval)
	}
	if cfg.Monitor.IndicesInterval != time.Minute {
		t.Fatalf("默认指数间隔应为 1m, 实际 %s", cfg.Monitor.IndicesInterval)
	}
	if cfg.Storage.Driver != "csv" {
		t.Fatalf("默认存储驱动应为 csv, 实际 %q", cfg.Storage.Driver)
	}
	if cfg.Calendar.Timezone != "Asia/Shanghai" {
		t.Fatalf("默认时区应为 Asia/Shanghai, 实际 %q", cfg.Calendar.Timezone)
	}

	thresholds := cfg.Monitor.Thresholds()
	for _, series := range market.AllSeries() {
		if thresholds[series] != 3 {
			t.Fatalf("默认熔断阈值应为 3, %s 实际 %d", series, thresholds[series])
		}
	}
}

func TestLoadOverridesAndSeriesThresholds(t *testing.T) {
	path := writeConfig(t, `
monitor:
  gold_interval: 5m
  failure_threshold: 4
  series_thresholds:
    indices: 10
    exchange_rate: 0
sources:
  exchange_rate:
    from: EUR
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Monitor.GoldInterval != 5*time.Minute {
		t.Fatalf("黄金间隔覆盖失败: %s", cfg.Monitor.GoldInterval)
	}

	thresholds := cfg.Monitor.Thresholds()
	if thresholds[market.SeriesGold] != 4 {
		t.Fatalf("gold 应继承基线阈值 4, 实际 %d", thresholds[market.SeriesGold])
	}
	if thresholds[market.SeriesIndices] != 10 {
		t.Fatalf("indices 阈值覆盖失败: %d", thresholds[market.SeriesIndices])
	}
	if thresholds[market.SeriesExchangeRate] != 0 {
		t.Fatalf("exchange_rate 阈值应为 0, 实际 %d", thresholds[market.SeriesExchangeRate])
	}

	if cfg.Sources.ExchangeRate.From != "EUR" {
		t.Fatalf("汇率来源币种覆盖失败: %q", cfg.Sources.ExchangeRate.From)
	}
	if cfg.Sources.ExchangeRate.To != "CNY" {
		t.Fatalf("默认目标币种应为 CNY, 实际 %q", cfg.Sources.ExchangeRate.To)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	if _, err := Load(writeConfig(t, "storage:\n  driver: mysql\n")); err == nil {
		t.Fatal("未知存储驱动应报错")
	}
}

func TestLoadRejectsPostgresWithoutDSN(t *testing.T) {
	if _, err := Load(writeConfig(t, "storage:\n  driver: postgres\n")); err == nil {
		t.Fatal("postgres 驱动缺少 dsn 应报错")
	}
}

func TestLoadRejectsUnknownSeriesThreshold(t *testing.T) {
	if _, err := Load(writeConfig(t, "monitor:\n  series_thresholds:\n    golds: 2\n")); err == nil {
		t.Fatal("未知序列名应报错")
	}
}

func TestLoadRejectsTelegramWithoutToken(t *testing.T) {
	path := writeConfig(t, `
alerting:
  telegram:
    enabled: true
    chat_id: "123"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("telegram 缺少 bot_token 应报错")
	}
}

func TestIntervalsCoversEverySeries(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: price-crawler\n"))
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	intervals := cfg.Monitor.Intervals()
	for _, series := range market.AllSeries() {
		if intervals[series] <= 0 {
			t.Fatalf("序列 %s 缺少轮询间隔", series)
		}
	}
}
