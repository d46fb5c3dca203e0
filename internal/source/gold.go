package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/szhangbiao/price-crawler/internal/market"
)

// 金衡盎司转克。
var gramsPerTroyOunce = decimal.NewFromFloat(31.1034768)

var decHundred = decimal.NewFromInt(100)

// CngoldOptions parameterise the cngold.org quote-page scraper.
type CngoldOptions struct {
	URL       string
	Keyword   string // quote row to extract, e.g. 黄金9999
	Timeout   time.Duration
	UserAgent string
}

// Cngold scrapes the gold quote table on cngold.org.
type Cngold struct {
	opts   CngoldOptions
	logger zerolog.Logger
	client *http.Client
	url    string
}

// NewCngold constructs the cngold scraper.
func NewCngold(opts CngoldOptions, logger zerolog.Logger) *Cngold {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	u := strings.TrimSpace(opts.URL)
	if u == "" {
		u = "https://quote.cngold.org/gjhj/swhj_9999.html"
	}
	if opts.Keyword == "" {
		opts.Keyword = "黄金9999"
	}
	return &Cngold{
		opts:   opts,
		logger: logger.With().Str("component", "cngold_source").Logger(),
		client: &http.Client{Timeout: timeout},
		url:    u,
	}
}

// Name identifies the adapter in chain logs.
func (c *Cngold) Name() string { return "cngold" }

// Fetch downloads the quote page and extracts the configured row.
func (c *Cngold) Fetch(ctx context.Context) (market.GoldPrice, error) {
	ua := strings.TrimSpace(c.opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	body, err := fetchBody(ctx, c.client, c.url, map[string]string{"User-Agent": ua})
	if err != nil {
		return market.GoldPrice{}, err
	}

	price, change, percent, err := parseCngoldQuote(string(body), c.opts.Keyword)
	if err != nil {
		return market.GoldPrice{}, err
	}

	now := stampNow()
	return market.GoldPrice{
		Price:         price,
		Change:        change,
		ChangePercent: percent,
		Time:          now,
		UpdateTime:    now.Format(market.TimeLayout),
		Source:        "cngold",
	}, nil
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// parseCngoldQuote locates the keyword row in the rendered page text and
// reads price, change and change percent from the cells that follow.
// Layout drift surfaces as an error so the chain can fall through.
func parseCngoldQuote(page, keyword string) (price, change, percent decimal.Decimal, err error) {
	text := htmlTagPattern.ReplaceAllString(page, " ")
	tokens := strings.Fields(text)

	start := -1
	for i, tok := range tokens {
		if strings.Contains(tok, keyword) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return price, change, percent, fmt.Errorf("cngold: quote row %q not found", keyword)
	}

	var numbers []decimal.Decimal
	var percentSeen bool
	for i := start; i < len(tokens) && i < start+12; i++ {
		tok := tokens[i]
		if strings.HasSuffix(tok, "%") && !percentSeen && len(numbers) >= 2 {
			if p, perr := decimal.NewFromString(strings.TrimSuffix(tok, "%")); perr == nil {
				percent = p
				percentSeen = true
				break
			}
			continue
		}
		if n, nerr := decimal.NewFromString(tok); nerr == nil && len(numbers) < 2 {
			numbers = append(numbers, n)
		}
	}
	if len(numbers) < 2 || !percentSeen {
		return price, change, percent, errors.New("cngold: page layout changed, cannot extract quote")
	}
	price, change = numbers[0], numbers[1]
	if price.LessThanOrEqual(decimal.Zero) {
		return price, change, percent, fmt.Errorf("cngold: implausible price %s", price)
	}
	return price, change, percent, nil
}

// GoldpriceOptions parameterise the goldprice.org JSON feed.
type GoldpriceOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Goldprice reads XAU/CNY from the goldprice.org public feed and converts
// the per-ounce quote to CNY per gram.
type Goldprice struct {
	opts   GoldpriceOptions
	logger zerolog.Logger
	client *http.Client
	url    string
}

// NewGoldprice constructs the goldprice.org fetcher.
func NewGoldprice(opts GoldpriceOptions, logger zerolog.Logger) *Goldprice {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	u := strings.TrimSpace(opts.BaseURL)
	if u == "" {
		u = "https://data-asg.goldprice.org/dbXRates/CNY"
	}
	return &Goldprice{
		opts:   opts,
		logger: logger.With().Str("component", "goldprice_source").Logger(),
		client: &http.Client{Timeout: timeout},
		url:    u,
	}
}

// Name identifies the adapter in chain logs.
func (g *Goldprice) Name() string { return "goldprice" }

// Fetch retrieves the current per-ounce quote and converts it to CNY/克.
func (g *Goldprice) Fetch(ctx context.Context) (market.GoldPrice, error) {
	ua := strings.TrimSpace(g.opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	body, err := fetchBody(ctx, g.client, g.url, map[string]string{
		"User-Agent": ua,
		"Accept":     "application/json",
	})
	if err != nil {
		return market.GoldPrice{}, err
	}

	var res goldpriceResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return market.GoldPrice{}, fmt.Errorf("goldprice: decode response: %w", err)
	}
	if len(res.Items) == 0 {
		return market.GoldPrice{}, errors.New("goldprice: empty items")
	}

	item := res.Items[0]
	if item.XauPrice <= 0 {
		return market.GoldPrice{}, fmt.Errorf("goldprice: implausible price %v", item.XauPrice)
	}

	price := decimal.NewFromFloat(item.XauPrice).Div(gramsPerTroyOunce).Round(2)
	change := decimal.NewFromFloat(item.ChgXau).Div(gramsPerTroyOunce).Round(2)
	percent := decimal.NewFromFloat(item.PcXau).Round(2)

	now := stampNow()
	return market.GoldPrice{
		Price:         price,
		Change:        change,
		ChangePercent: percent,
		Time:          now,
		UpdateTime:    now.Format(market.TimeLayout),
		Source:        "goldprice",
	}, nil
}

type goldpriceResponse struct {
	Ts    int64 `json:"ts"`
	Items []struct {
		Curr     string  `json:"curr"`
		XauPrice float64 `json:"xauPrice"`
		ChgXau   float64 `json:"chgXau"`
		PcXau    float64 `json:"pcXau"`
	} `json:"items"`
}

// JuheGoldOptions parameterise the juhe.cn Shanghai gold API.
type JuheGoldOptions struct {
	BaseURL string
	Key     string
	Variety string // e.g. Au99.99
	Timeout time.Duration
}

// JuheGold fetches Shanghai Gold Exchange quotes from the juhe.cn API.
type JuheGold struct {
	opts   JuheGoldOptions
	logger zerolog.Logger
	client *http.Client
	url    string
}

// NewJuheGold constructs the juhe gold fetcher.
func NewJuheGold(opts JuheGoldOptions, logger zerolog.Logger) *JuheGold {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	u := strings.TrimSpace(opts.BaseURL)
	if u == "" {
		u = "http://web.juhe.cn/finance/gold/shgold"
	}
	if opts.Variety == "" {
		opts.Variety = "Au99.99"
	}
	return &JuheGold{
		opts:   opts,
		logger: logger.With().Str("component", "juhe_gold_source").Logger(),
		client: &http.Client{Timeout: timeout},
		url:    u,
	}
}

// Name identifies the adapter in chain logs.
func (j *JuheGold) Name() string { return "juhe" }

// Fetch queries the API and extracts the configured variety.
func (j *JuheGold) Fetch(ctx context.Context) (market.GoldPrice, error) {
	if j.opts.Key == "" {
		return market.GoldPrice{}, errors.New("juhe gold api key not configured")
	}

	q := url.Values{}
	q.Set("key", j.opts.Key)
	q.Set("v", "1")
	body, err := fetchBody(ctx, j.client, j.url+"?"+q.Encode(), nil)
	if err != nil {
		return market.GoldPrice{}, err
	}

	var res juheGoldResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return market.GoldPrice{}, fmt.Errorf("juhe gold: decode response: %w", err)
	}
	if res.Resultcode != "200" {
		return market.GoldPrice{}, fmt.Errorf("juhe gold api error (%d): %s", res.ErrorCode, res.Reason)
	}

	for _, group := range res.Result {
		for _, item := range group {
			if item.Variety != j.opts.Variety {
				continue
			}
			price, err := decimal.NewFromString(item.LatestPri)
			if err != nil {
				return market.GoldPrice{}, fmt.Errorf("juhe gold: parse latestpri: %w", err)
			}
			yesterday, err := decimal.NewFromString(item.YesPri)
			if err != nil {
				return market.GoldPrice{}, fmt.Errorf("juhe gold: parse yespri: %w", err)
			}
			percent, err := decimal.NewFromString(strings.TrimSuffix(item.Limit, "%"))
			if err != nil {
				return market.GoldPrice{}, fmt.Errorf("juhe gold: parse limit: %w", err)
			}
			return market.GoldPrice{
				Price:         price,
				Change:        price.Sub(yesterday).Round(2),
				ChangePercent: percent,
				Time:          stampNow(),
				UpdateTime:    item.Time,
				Source:        "juhe",
			}, nil
		}
	}
	return market.GoldPrice{}, fmt.Errorf("juhe gold: variety %s not in response", j.opts.Variety)
}

type juheGoldResponse struct {
	Resultcode string                    `json:"resultcode"`
	Reason     string                    `json:"reason"`
	ErrorCode  int                       `json:"error_code"`
	Result     []map[string]juheGoldItem `json:"result"`
}

type juheGoldItem struct {
	Variety   string `json:"variety"`
	LatestPri string `json:"latestpri"`
	YesPri    string `json:"yespri"`
	Limit     string `json:"limit"`
	Time      string `json:"time"`
}

// SyntheticGoldOptions parameterise the simulated last-resort quote.
type SyntheticGoldOptions struct {
	BasePrice decimal.Decimal
}

// SyntheticGold produces a simulated quote around a base price. It never
// fails and terminates the gold fallback chain.
type SyntheticGold struct {
	base   decimal.Decimal
	logger zerolog.Logger
}

// NewSyntheticGold constructs the simulated source.
func NewSyntheticGold(opts SyntheticGoldOptions, logger zerolog.Logger) *SyntheticGold {
	base := opts.BasePrice
	if base.LessThanOrEqual(decimal.Zero) {
		base = decimal.NewFromInt(450)
	}
	return &SyntheticGold{
		base:   base,
		logger: logger.With().Str("component", "synthetic_gold_source").Logger(),
	}
}

// Name identifies the adapter in chain logs.
func (s *SyntheticGold) Name() string { return "simulated" }

// Fetch returns base ± U(-2, 2), rounded to fen.
func (s *SyntheticGold) Fetch(_ context.Context) (market.GoldPrice, error) {
	s.logger.Warn().Msg("使用模拟黄金价格数据")
	change := decimal.NewFromFloat(rand.Float64()*4 - 2).Round(2)
	price := s.base.Add(change)
	percent := change.Div(s.base).Mul(decHundred).Round(2)

	now := stampNow()
	return market.GoldPrice{
		Price:         price,
		Change:        change,
		ChangePercent: percent,
		Time:          now,
		UpdateTime:    now.Format(market.TimeLayout),
		Source:        "simulated",
	}, nil
}

var (
	_ Adapter[market.GoldPrice] = (*Cngold)(nil)
	_ Adapter[market.GoldPrice] = (*Goldprice)(nil)
	_ Adapter[market.GoldPrice] = (*JuheGold)(nil)
	_ Adapter[market.GoldPrice] = (*SyntheticGold)(nil)
)
