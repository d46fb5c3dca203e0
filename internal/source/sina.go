package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/szhangbiao/price-crawler/internal/market"
)

// IndexCode pairs a sina quote code with its display name.
type IndexCode struct {
	Code string
	Name string
}

// DefaultIndexCodes returns the three tracked A-share indices.
func DefaultIndexCodes() []IndexCode {
	return []IndexCode{
		{Code: "s_sh000001", Name: "上证指数"},
		{Code: "s_sz399001", Name: "深证成指"},
		{Code: "s_sz399006", Name: "创业板指"},
	}
}

// SinaOptions parameterise the sina quote endpoint.
type SinaOptions struct {
	BaseURL   string
	Referer   string
	UserAgent string
	Timeout   time.Duration
	Codes     []IndexCode
}

// SinaIndices fetches index snapshots from the hq.sinajs.cn var-text feed.
// All requested codes go out in a single request.
type SinaIndices struct {
	opts   SinaOptions
	logger zerolog.Logger
	client *http.Client
	url    string
}

// NewSinaIndices constructs the sina index fetcher.
func NewSinaIndices(opts SinaOptions, logger zerolog.Logger) *SinaIndices {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://hq.sinajs.cn"
	}
	if opts.Referer == "" {
		opts.Referer = "https://finance.sina.com.cn"
	}
	if len(opts.Codes) == 0 {
		opts.Codes = DefaultIndexCodes()
	}

	codes := make([]string, len(opts.Codes))
	for i, c := range opts.Codes {
		codes[i] = c.Code
	}

	return &SinaIndices{
		opts:   opts,
		logger: logger.With().Str("component", "sina_source").Logger(),
		client: &http.Client{Timeout: timeout},
		url:    base + "/list=" + strings.Join(codes, ","),
	}
}

// Name identifies the adapter in chain logs.
func (s *SinaIndices) Name() string { return "sina" }

// Fetch downloads and parses the current index quotes. Order follows the
// configured code list; codes missing from the payload are skipped with a
// warning, an empty result is an error.
func (s *SinaIndices) Fetch(ctx context.Context) ([]market.IndexQuote, error) {
	ua := strings.TrimSpace(s.opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	// 缺少 Referer 时 sina 返回 456。
	body, err := fetchBody(ctx, s.client, s.url, map[string]string{
		"User-Agent": ua,
		"Referer":    s.opts.Referer,
	})
	if err != nil {
		return nil, err
	}

	text := decodeGB18030(body)
	parsed := parseSinaPayload(text)

	now := stampNow()
	quotes := make([]market.IndexQuote, 0, len(s.opts.Codes))
	for _, code := range s.opts.Codes {
		q, ok := parsed[code.Code]
		if !ok {
			s.logger.Warn().Str("code", code.Code).Msg("行情应答缺少该指数")
			continue
		}
		if q.Name == "" {
			q.Name = code.Name
		}
		q.Time = now
		quotes = append(quotes, q)
	}
	if len(quotes) == 0 {
		return nil, errors.New("sina: no index quotes parsed")
	}
	return quotes, nil
}

// decodeGB18030 converts the sina payload to UTF-8. On a malformed byte
// sequence the raw payload is returned and number parsing decides.
func decodeGB18030(body []byte) string {
	decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// parseSinaPayload reads lines of the form
//
//	var hq_str_s_sh000001="上证指数,3091.68,-12.21,-0.39,2822832,31255716";
//
// and returns quotes keyed by code. Malformed lines are dropped.
func parseSinaPayload(text string) map[string]market.IndexQuote {
	quotes := make(map[string]market.IndexQuote)
	for _, line := range strings.Split(text, "\n") {
		code, quote, err := parseSinaLine(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		quotes[code] = quote
	}
	return quotes
}

func parseSinaLine(line string) (string, market.IndexQuote, error) {
	const prefix = "var hq_str_"
	if !strings.HasPrefix(line, prefix) {
		return "", market.IndexQuote{}, errors.New("not a quote line")
	}
	rest := strings.TrimPrefix(line, prefix)
	code, payload, ok := strings.Cut(rest, `="`)
	if !ok {
		return "", market.IndexQuote{}, errors.New("missing assignment")
	}
	payload, _, ok = strings.Cut(payload, `";`)
	if !ok {
		return "", market.IndexQuote{}, errors.New("unterminated payload")
	}

	fields := strings.Split(payload, ",")
	if len(fields) < 4 {
		return "", market.IndexQuote{}, fmt.Errorf("expected at least 4 fields, got %d", len(fields))
	}

	price, err := decimal.NewFromString(fields[1])
	if err != nil {
		return "", market.IndexQuote{}, fmt.Errorf("parse price: %w", err)
	}
	change, err := decimal.NewFromString(fields[2])
	if err != nil {
		return "", market.IndexQuote{}, fmt.Errorf("parse change: %w", err)
	}
	percent, err := decimal.NewFromString(fields[3])
	if err != nil {
		return "", market.IndexQuote{}, fmt.Errorf("parse change percent: %w", err)
	}

	return code, market.IndexQuote{
		Name:          strings.TrimSpace(fields[0]),
		Price:         price,
		Change:        change,
		ChangePercent: percent,
	}, nil
}

var _ Adapter[[]market.IndexQuote] = (*SinaIndices)(nil)
