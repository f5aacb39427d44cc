package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrRateUnavailable     = errors.New("exchange rate unavailable")
)

// Conversion is advisory display data; stored amounts stay in USD cents.
type Conversion struct {
	Currency    string          `json:"currency"`
	Rate        decimal.Decimal `json:"rate"`
	AmountCents int64           `json:"amount_cents"`
	Amount      decimal.Decimal `json:"amount"`
}

type ratesResponse struct {
	Result string                     `json:"result"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

// Converter fetches USD-based rates and caches them for ttl.
type Converter struct {
	url    string
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	group     singleflight.Group
	mu        sync.Mutex // guards rates and fetchedAt only, never held over the fetch
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
}

func NewConverter(url string, timeout time.Duration) *Converter {
	return &Converter{
		url:    url,
		client: &http.Client{Timeout: timeout},
		ttl:    time.Hour,
		now:    time.Now,
	}
}

func (c *Converter) ConvertFromUSD(ctx context.Context, cents int64, currency string) (Conversion, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	usd := decimal.New(cents, -2)
	if currency == "" || currency == "USD" {
		return Conversion{Currency: "USD", Rate: decimal.NewFromInt(1), AmountCents: cents, Amount: usd}, nil
	}

	rates, err := c.loadRates(ctx)
	if err != nil {
		return Conversion{}, err
	}
	rate, ok := rates[currency]
	if !ok {
		return Conversion{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}
	return Conversion{
		Currency:    currency,
		Rate:        rate,
		AmountCents: cents,
		Amount:      usd.Mul(rate).Round(2),
	}, nil
}

func (c *Converter) loadRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	if rates, ok := c.cached(); ok {
		return rates, nil
	}
	// Concurrent misses share one fetch. It is detached from the first
	// caller's cancellation; the client timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("rates", func() (interface{}, error) {
		if rates, ok := c.cached(); ok {
			return rates, nil
		}
		rates, err := c.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.rates, c.fetchedAt = rates, c.now()
		c.mu.Unlock()
		return rates, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]decimal.Decimal), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrRateUnavailable, ctx.Err())
	}
}

func (c *Converter) cached() (map[string]decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rates != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.rates, true
	}
	return nil, false
}

func (c *Converter) fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRateUnavailable, resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrRateUnavailable, err)
	}
	if body.Result != "success" || len(body.Rates) == 0 {
		return nil, fmt.Errorf("%w: result %q", ErrRateUnavailable, body.Result)
	}
	return body.Rates, nil
}
