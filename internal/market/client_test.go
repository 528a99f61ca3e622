package market

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"platval/internal"
	"platval/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	cfg, _ := config.Load()
	cfg.MarketAPIBaseURL = "https://example.test/v1"
	cfg.MarketRateLimitRPS = 1000
	cfg.PriceRetryMax = 3
	client := NewClient(cfg)
	client.httpClient = &http.Client{Transport: rt}
	return client
}

func decimalFromInt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func jsonResponse(status int, payload any) *http.Response {
	blob, _ := json.Marshal(map[string]any{"payload": payload})
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(string(blob))),
		Header:     make(http.Header),
	}
}

func TestGetItemsAllWithRetry(t *testing.T) {
	attempt := 0
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/items" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		attempt++
		if attempt == 1 {
			return &http.Response{
				StatusCode: http.StatusServiceUnavailable,
				Body:       io.NopCloser(strings.NewReader(`{"error":"down"}`)),
				Header:     make(http.Header),
			}, nil
		}
		return jsonResponse(http.StatusOK, map[string]any{"items": []map[string]any{
			{"id": "a1", "url_name": "serration", "item_name": "Serration"},
			{"id": "a2", "url_name": "ash_prime_blueprint", "item_name": "Ash Prime Blueprint"},
		}}), nil
	})

	items, err := client.GetItemsAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("len=%d", len(items))
	}
	if items[0].URLName != "serration" {
		t.Fatalf("url_name=%s", items[0].URLName)
	}
}

func TestFetchPricePrefersIngameSellers(t *testing.T) {
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/items/serration/orders" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Platform"); got == "" {
			t.Fatal("platform header missing")
		}
		return jsonResponse(http.StatusOK, map[string]any{"orders": []map[string]any{
			{"order_type": "sell", "platinum": 5, "visible": true, "user": map[string]any{"status": "offline"}},
			{"order_type": "sell", "platinum": 14, "visible": true, "user": map[string]any{"status": "ingame"}},
			{"order_type": "sell", "platinum": 12, "visible": true, "user": map[string]any{"status": "ingame"}},
			{"order_type": "buy", "platinum": 2, "visible": true, "user": map[string]any{"status": "ingame"}},
		}}), nil
	})

	price, err := client.FetchPrice(context.Background(), "serration", internal.CategoryItem)
	if err != nil {
		t.Fatal(err)
	}
	if !price.Equal(decimalFromInt(12)) {
		t.Fatalf("price=%s", price)
	}
}

func TestFetchPriceFallsBackWhenNobodyIngame(t *testing.T) {
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, map[string]any{"orders": []map[string]any{
			{"order_type": "sell", "platinum": 30, "visible": true, "user": map[string]any{"status": "offline"}},
			{"order_type": "sell", "platinum": 25, "visible": true, "user": map[string]any{"status": "offline"}},
		}}), nil
	})

	price, err := client.FetchPrice(context.Background(), "serration", internal.CategoryItem)
	if err != nil {
		t.Fatal(err)
	}
	if !price.Equal(decimalFromInt(25)) {
		t.Fatalf("price=%s", price)
	}
}

func TestFetchPricePrefersUnrankedMods(t *testing.T) {
	rank := func(v int) map[string]any {
		return map[string]any{"order_type": "sell", "platinum": 8 + v*10, "visible": true, "mod_rank": v, "user": map[string]any{"status": "ingame"}}
	}
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, map[string]any{"orders": []map[string]any{
			{"order_type": "sell", "platinum": 3, "visible": true, "mod_rank": 10, "user": map[string]any{"status": "ingame"}},
			rank(0), rank(0),
		}}), nil
	})

	price, err := client.FetchPrice(context.Background(), "serration", internal.CategoryMod)
	if err != nil {
		t.Fatal(err)
	}
	if !price.Equal(decimalFromInt(8)) {
		t.Fatalf("price=%s", price)
	}
}

func TestFetchPriceErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound},
		{name: "auth", status: http.StatusForbidden, want: ErrAuth},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := testClient(t, func(r *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: tc.status,
					Body:       io.NopCloser(strings.NewReader(`{}`)),
					Header:     make(http.Header),
				}, nil
			})
			_, err := client.FetchPrice(context.Background(), "made_up_item", internal.CategoryItem)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
		})
	}
}
