package epargne

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
)

func newTestQuoteClient(apiKey string, doer HTTPDoer) *quoteClient {
	return newQuoteClient(quoteClientOptions{
		APIKey:     apiKey,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		HTTPClient: doer,
	})
}

func TestGetQuoteParsesGlobalQuote(t *testing.T) {
	doer := &stubDoer{responses: []*http.Response{
		jsonResponse(200, globalQuoteBody("62.49", "-0.51", "-0.8229%", 4821345)),
	}}
	client := newTestQuoteClient("key", doer)

	quote, err := client.GetQuote(context.Background(), "tte")
	assertNoError(t, err, "GetQuote")
	assertAmount(t, quote.Price, 62.49, "price")
	assertAmount(t, quote.Change, -0.51, "change")
	assertAmount(t, quote.ChangePercent, -0.8229, "change percent stripped of %")
	if quote.Volume != 4821345 {
		t.Errorf("volume: got %d", quote.Volume)
	}

	req := doer.requests[0]
	if req.URL.Query().Get("symbol") != "TTE" {
		t.Errorf("symbol not normalized: %v", req.URL)
	}
	if req.URL.Query().Get("apikey") != "key" {
		t.Error("api key missing from request")
	}
}

func TestGetQuoteMissingAPIKey(t *testing.T) {
	client := newTestQuoteClient("  ", &stubDoer{})
	_, err := client.GetQuote(context.Background(), "TTE")
	if !errors.Is(err, ErrQuoteAPIKeyMissing) {
		t.Fatalf("expected ErrQuoteAPIKeyMissing, got %v", err)
	}
}

func TestGetQuoteRateLimited(t *testing.T) {
	for _, body := range []string{
		`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`,
		`{"Information": "higher API call volume"}`,
	} {
		doer := &stubDoer{responses: []*http.Response{jsonResponse(200, body)}}
		client := newTestQuoteClient("key", doer)
		_, err := client.GetQuote(context.Background(), "TTE")
		if !errors.Is(err, ErrQuoteRateLimited) {
			t.Fatalf("body %s: expected ErrQuoteRateLimited, got %v", body, err)
		}
	}
}

func TestGetQuoteUnavailable(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"empty global quote", `{"Global Quote": {}}`},
		{"zero price", globalQuoteBody("0.0000", "0", "0%", 0)},
		{"garbled price", globalQuoteBody("n/a", "0", "0%", 0)},
	}
	for _, tc := range cases {
		doer := &stubDoer{responses: []*http.Response{jsonResponse(200, tc.body)}}
		client := newTestQuoteClient("key", doer)
		if _, err := client.GetQuote(context.Background(), "TTE"); !errors.Is(err, ErrQuoteUnavailable) {
			t.Errorf("%s: expected ErrQuoteUnavailable, got %v", tc.name, err)
		}
	}
}

func TestGetQuoteHTTPFailure(t *testing.T) {
	doer := &stubDoer{responses: []*http.Response{jsonResponse(503, `{}`)}}
	client := newTestQuoteClient("key", doer)
	_, err := client.GetQuote(context.Background(), "TTE")
	if err == nil {
		t.Fatal("expected an error on http 503")
	}

	doer = &stubDoer{err: errors.New("connection refused")}
	client = newTestQuoteClient("key", doer)
	if _, err := client.GetQuote(context.Background(), "TTE"); err == nil {
		t.Fatal("expected a transport error")
	}
}

func TestGetQuoteEmptySymbol(t *testing.T) {
	client := newTestQuoteClient("key", &stubDoer{})
	if _, err := client.GetQuote(context.Background(), "  "); !errors.Is(err, ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}
