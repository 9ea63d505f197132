package epargne

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Quote client errors. Use errors.Is() to check for these conditions.
var (
	// ErrQuoteUnavailable indicates the source returned no usable data
	// for the symbol.
	ErrQuoteUnavailable = errors.New("no quote data available")
	// ErrQuoteRateLimited indicates the source answered with a
	// rate-limit or information payload instead of a quote.
	ErrQuoteRateLimited = errors.New("quote source rate limited")
	// ErrQuoteAPIKeyMissing indicates no API key is configured.
	ErrQuoteAPIKeyMissing = errors.New("quote api key not configured")
)

const alphaVantageURL = "https://www.alphavantage.co/query"

// HTTPDoer is the minimal HTTP client surface, injectable for tests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Quote is one market-data snapshot from the external source.
type Quote struct {
	Price         Amount `json:"price"`
	Change        Amount `json:"change"`
	ChangePercent Amount `json:"change_percent"`
	Volume        int64  `json:"volume"`
}

type quoteClientOptions struct {
	APIKey      string
	Logger      *slog.Logger
	HTTPTimeout time.Duration
	HTTPClient  HTTPDoer
}

// quoteClient fetches GLOBAL_QUOTE snapshots from Alpha Vantage.
type quoteClient struct {
	apiKey string
	logger *slog.Logger
	client HTTPDoer
}

func newQuoteClient(opts quoteClientOptions) *quoteClient {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.HTTPTimeout}
	}
	return &quoteClient{
		apiKey: strings.TrimSpace(opts.APIKey),
		logger: logger,
		client: client,
	}
}

// GetQuote fetches the current snapshot for a symbol.
func (q *quoteClient) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrQuoteUnavailable
	}
	if q.apiKey == "" {
		return nil, ErrQuoteAPIKeyMissing
	}

	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", q.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, alphaVantageURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "epargne/1.0")

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote source http %d", resp.StatusCode)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if _, ok := raw["Note"]; ok {
		return nil, ErrQuoteRateLimited
	}
	if _, ok := raw["Information"]; ok {
		return nil, ErrQuoteRateLimited
	}
	payload, ok := raw["Global Quote"]
	if !ok {
		return nil, ErrQuoteUnavailable
	}

	var fields map[string]string
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrQuoteUnavailable
	}

	price, err := ParseAmount(fields["05. price"])
	if err != nil || !price.IsPositive() {
		return nil, ErrQuoteUnavailable
	}
	change, err := ParseAmount(fields["09. change"])
	if err != nil {
		return nil, ErrQuoteUnavailable
	}
	changePercent, err := ParseAmount(strings.TrimSuffix(fields["10. change percent"], "%"))
	if err != nil {
		return nil, ErrQuoteUnavailable
	}
	volume, err := strconv.ParseInt(fields["06. volume"], 10, 64)
	if err != nil {
		return nil, ErrQuoteUnavailable
	}

	return &Quote{
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        volume,
	}, nil
}
