package source

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/szhangbiao/price-crawler/internal/market"
)

func noopLogger() zerolog.Logger { return zerolog.Nop() }

type stubAdapter struct {
	name   string
	value  int
	err    error
	panics bool
	calls  int
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(context.Context) (int, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.value, s.err
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	primary := &stubAdapter{name: "primary", value: 1}
	backup := &stubAdapter{name: "backup", value: 2}
	chain := NewChain(market.SeriesGold, noopLogger(), primary, backup)

	v, err := chain.Resolve(context.Background())
	if err != nil {
		t.Fatalf("主源成功不应报错: %v", err)
	}
	if v != 1 {
		t.Fatalf("应返回主源结果, got %d", v)
	}
	if backup.calls != 0 {
		t.Fatal("主源成功后不应尝试备用源")
	}
}

func TestChainFallsThroughFailures(t *testing.T) {
	primary := &stubAdapter{name: "primary", err: errors.New("超时")}
	backup := &stubAdapter{name: "backup", value: 2}
	chain := NewChain(market.SeriesGold, noopLogger(), primary, backup)

	v, err := chain.Resolve(context.Background())
	if err != nil {
		t.Fatalf("备用源成功不应报错: %v", err)
	}
	if v != 2 {
		t.Fatalf("应返回备用源结果, got %d", v)
	}
	if primary.calls != 1 {
		t.Fatal("主源应被尝试一次")
	}
}

func TestChainExhaustion(t *testing.T) {
	a := &stubAdapter{name: "a", err: errors.New("boom")}
	b := &stubAdapter{name: "b", err: errors.New("bang")}
	chain := NewChain(market.SeriesExchangeRate, noopLogger(), a, b)

	_, err := chain.Resolve(context.Background())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("全部失败应返回 ErrExhausted, got %v", err)
	}
}

func TestChainEmptyIsExhausted(t *testing.T) {
	chain := NewChain[int](market.SeriesGold, noopLogger())
	if _, err := chain.Resolve(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Fatalf("空链应返回 ErrExhausted, got %v", err)
	}
}

func TestChainRecoversPanickingAdapter(t *testing.T) {
	bad := &stubAdapter{name: "bad", panics: true}
	good := &stubAdapter{name: "good", value: 7}
	chain := NewChain(market.SeriesIndices, noopLogger(), bad, good)

	v, err := chain.Resolve(context.Background())
	if err != nil {
		t.Fatalf("panic 应被当作普通失败: %v", err)
	}
	if v != 7 {
		t.Fatalf("应落到下一个源, got %d", v)
	}
}
