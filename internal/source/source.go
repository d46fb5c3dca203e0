package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/szhangbiao/price-crawler/internal/market"
)

// ErrExhausted reports that every adapter in a chain failed.
var ErrExhausted = errors.New("all sources failed")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Adapter fetches one observation of type T from a single vendor.
type Adapter[T any] interface {
	Name() string
	Fetch(ctx context.Context) (T, error)
}

// Chain resolves a series by trying adapters in order until one succeeds.
// Individual failures are logged and swallowed; only exhaustion surfaces.
type Chain[T any] struct {
	series   market.Series
	adapters []Adapter[T]
	logger   zerolog.Logger
}

// NewChain builds a fallback chain for a series.
func NewChain[T any](series market.Series, logger zerolog.Logger, adapters ...Adapter[T]) *Chain[T] {
	return &Chain[T]{
		series:   series,
		adapters: adapters,
		logger:   logger.With().Str("component", "source_chain").Str("series", series.String()).Logger(),
	}
}

// Series identifies the series this chain resolves.
func (c *Chain[T]) Series() market.Series { return c.series }

// Resolve returns the first adapter result that succeeds. When every
// adapter fails the returned error wraps ErrExhausted.
func (c *Chain[T]) Resolve(ctx context.Context) (T, error) {
	for i, adapter := range c.adapters {
		v, err := c.attempt(ctx, adapter)
		if err != nil {
			c.logger.Warn().Err(err).Str("adapter", adapter.Name()).Msg("数据源失败, 尝试下一个")
			continue
		}
		if i > 0 {
			c.logger.Warn().Str("adapter", adapter.Name()).Msg("使用备用数据源")
		}
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("%s: %w", c.series, ErrExhausted)
}

// attempt shields the chain from panicking adapters.
func (c *Chain[T]) attempt(ctx context.Context, adapter Adapter[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter %s panicked: %v", adapter.Name(), r)
		}
	}()
	return adapter.Fetch(ctx)
}

// stampNow returns the observation timestamp. Sub-second precision is
// dropped so rows survive a save/load cycle unchanged.
func stampNow() time.Time {
	return time.Now().Truncate(time.Second)
}

// fetchBody performs a GET and returns the payload of a 200 response.
func fetchBody(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet(body))
	}
	return body, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
