package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/szhangbiao/price-crawler/internal/market"
)

// JuheForexOptions parameterise the juhe.cn currency API.
type JuheForexOptions struct {
	BaseURL string
	Key     string
	From    string
	To      string
	Timeout time.Duration
}

// JuheForex fetches the USD/CNY rate from the juhe.cn onebox currency API.
type JuheForex struct {
	opts   JuheForexOptions
	logger zerolog.Logger
	client *http.Client
	url    string
}

// NewJuheForex constructs the juhe currency fetcher.
func NewJuheForex(opts JuheForexOptions, logger zerolog.Logger) *JuheForex {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	u := strings.TrimSpace(opts.BaseURL)
	if u == "" {
		u = "http://op.juhe.cn/onebox/exchange/currency"
	}
	if opts.From == "" {
		opts.From = "USD"
	}
	if opts.To == "" {
		opts.To = "CNY"
	}
	return &JuheForex{
		opts:   opts,
		logger: logger.With().Str("component", "juhe_forex_source").Logger(),
		client: &http.Client{Timeout: timeout},
		url:    u,
	}
}

// Name identifies the adapter in chain logs.
func (j *JuheForex) Name() string { return "juhe" }

// Fetch queries the API and extracts the configured currency pair.
func (j *JuheForex) Fetch(ctx context.Context) (market.ExchangeRate, error) {
	if j.opts.Key == "" {
		return market.ExchangeRate{}, errors.New("juhe currency api key not configured")
	}

	q := url.Values{}
	q.Set("key", j.opts.Key)
	q.Set("from", j.opts.From)
	q.Set("to", j.opts.To)
	q.Set("version", "2")
	body, err := fetchBody(ctx, j.client, j.url+"?"+q.Encode(), nil)
	if err != nil {
		return market.ExchangeRate{}, err
	}

	var res juheForexResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return market.ExchangeRate{}, fmt.Errorf("juhe currency: decode response: %w", err)
	}
	if res.ErrorCode != 0 {
		return market.ExchangeRate{}, fmt.Errorf("juhe currency api error (%d): %s", res.ErrorCode, res.Reason)
	}

	for _, item := range res.Result {
		if item.CurrencyF != j.opts.From || item.CurrencyT != j.opts.To {
			continue
		}
		price, err := decimal.NewFromString(item.Result)
		if err != nil {
			return market.ExchangeRate{}, fmt.Errorf("juhe currency: parse rate: %w", err)
		}
		price = price.Round(4)
		return market.ExchangeRate{
			Name:   item.CurrencyFName + "/" + item.CurrencyTName,
			Desc:   fmt.Sprintf("1%s可兑换%s%s", item.CurrencyFName, price, item.CurrencyTName),
			Price:  price,
			Time:   stampNow(),
			Update: item.UpdateTime,
			Source: "juhe",
		}, nil
	}
	return market.ExchangeRate{}, fmt.Errorf("juhe currency: pair %s/%s not in response", j.opts.From, j.opts.To)
}

type juheForexResponse struct {
	Reason    string `json:"reason"`
	ErrorCode int    `json:"error_code"`
	Result    []struct {
		CurrencyF     string `json:"currencyF"`
		CurrencyFName string `json:"currencyF_Name"`
		CurrencyT     string `json:"currencyT"`
		CurrencyTName string `json:"currencyT_Name"`
		Result        string `json:"result"`
		UpdateTime    string `json:"updateTime"`
	} `json:"result"`
}

// MxnzpOptions parameterise the mxnzp.com exchange-rate API.
type MxnzpOptions struct {
	BaseURL   string
	AppID     string
	AppSecret string
	From      string
	To        string
	Timeout   time.Duration
}

// Mxnzp fetches the USD/CNY rate from the mxnzp.com aim API.
type Mxnzp struct {
	opts   MxnzpOptions
	logger zerolog.Logger
	client *http.Client
	url    string
}

// NewMxnzp constructs the mxnzp currency fetcher.
func NewMxnzp(opts MxnzpOptions, logger zerolog.Logger) *Mxnzp {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	u := strings.TrimSpace(opts.BaseURL)
	if u == "" {
		u = "https://www.mxnzp.com/api/exchange_rate/aim"
	}
	if opts.From == "" {
		opts.From = "USD"
	}
	if opts.To == "" {
		opts.To = "CNY"
	}
	return &Mxnzp{
		opts:   opts,
		logger: logger.With().Str("component", "mxnzp_source").Logger(),
		client: &http.Client{Timeout: timeout},
		url:    u,
	}
}

// Name identifies the adapter in chain logs.
func (m *Mxnzp) Name() string { return "mxnzp" }

// Fetch queries the API for the configured pair.
func (m *Mxnzp) Fetch(ctx context.Context) (market.ExchangeRate, error) {
	if m.opts.AppID == "" || m.opts.AppSecret == "" {
		return market.ExchangeRate{}, errors.New("mxnzp app_id/app_secret not configured")
	}

	q := url.Values{}
	q.Set("from", m.opts.From)
	q.Set("to", m.opts.To)
	q.Set("app_id", m.opts.AppID)
	q.Set("app_secret", m.opts.AppSecret)
	body, err := fetchBody(ctx, m.client, m.url+"?"+q.Encode(), nil)
	if err != nil {
		return market.ExchangeRate{}, err
	}

	var res mxnzpResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return market.ExchangeRate{}, fmt.Errorf("mxnzp: decode response: %w", err)
	}
	if res.Code != 1 {
		return market.ExchangeRate{}, fmt.Errorf("mxnzp api error (%d): %s", res.Code, res.Msg)
	}

	price, err := decimal.NewFromString(res.Data.Price)
	if err != nil {
		return market.ExchangeRate{}, fmt.Errorf("mxnzp: parse price: %w", err)
	}
	return market.ExchangeRate{
		Name:   m.opts.From + "/" + m.opts.To,
		Desc:   res.Data.NameDesc,
		Price:  price.Round(4),
		Time:   stampNow(),
		Update: res.Data.UpdateTime,
		Source: "mxnzp",
	}, nil
}

type mxnzpResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		NameDesc   string `json:"nameDesc"`
		Price      string `json:"price"`
		UpdateTime string `json:"updateTime"`
	} `json:"data"`
}

var (
	_ Adapter[market.ExchangeRate] = (*JuheForex)(nil)
	_ Adapter[market.ExchangeRate] = (*Mxnzp)(nil)
)
