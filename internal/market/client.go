package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"platval/internal"
	"platval/internal/config"
)

var (
	// ErrNotFound means the catalog has no such item or no sell orders exist.
	ErrNotFound = errors.New("market: not found")
	// ErrAuth means the API rejected our credentials/platform setup. Not
	// retryable; callers abort remaining lookups.
	ErrAuth = errors.New("market: request rejected")
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Payload json.RawMessage `json:"payload"`
	Error   *string         `json:"error"`
}

type itemsPayload struct {
	Items []struct {
		ID       string `json:"id"`
		URLName  string `json:"url_name"`
		ItemName string `json:"item_name"`
	} `json:"items"`
}

type ordersPayload struct {
	Orders []order `json:"orders"`
}

type order struct {
	OrderType string  `json:"order_type"`
	Platinum  float64 `json:"platinum"`
	Visible   bool    `json:"visible"`
	ModRank   *int    `json:"mod_rank"`
	User      struct {
		Status string `json:"status"`
	} `json:"user"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.MarketTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.MarketRateLimitRPS),
	}
}

// GetItemsAll fetches the full tradables list. The url_name field is the
// canonical identifier everything else in this program keys on.
func (c *Client) GetItemsAll(ctx context.Context) ([]internal.CatalogItem, error) {
	body, err := c.fetchJSON(ctx, "items")
	if err != nil {
		return nil, err
	}

	var payload itemsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	out := make([]internal.CatalogItem, 0, len(payload.Items))
	for _, it := range payload.Items {
		urlName := strings.TrimSpace(it.URLName)
		if urlName == "" {
			continue
		}
		out = append(out, internal.CatalogItem{
			URLName:  urlName,
			ItemName: strings.TrimSpace(it.ItemName),
			MarketID: it.ID,
		})
	}
	return out, nil
}

// FetchPrice returns the going platinum price for one item: the minimum sell
// offer from an in-game seller, falling back to the minimum over all sell
// offers when nobody is in game. Donated mods and arcanes are unranked, so
// for those categories rank-0 offers are preferred when present.
func (c *Client) FetchPrice(ctx context.Context, itemID string, category internal.Category) (decimal.Decimal, error) {
	body, err := c.fetchJSON(ctx, "items/"+url.PathEscape(itemID)+"/orders")
	if err != nil {
		return decimal.Zero, err
	}

	var payload ordersPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, err
	}

	price, ok := selectPrice(payload.Orders, category)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no sell orders for %s", ErrNotFound, itemID)
	}
	return price, nil
}

func selectPrice(orders []order, category internal.Category) (decimal.Decimal, bool) {
	sells := make([]order, 0, len(orders))
	for _, o := range orders {
		if o.OrderType == "sell" && o.Visible {
			sells = append(sells, o)
		}
	}
	if len(sells) == 0 {
		return decimal.Zero, false
	}

	pool := filterOrders(sells, func(o order) bool { return o.User.Status == "ingame" })
	if len(pool) == 0 {
		pool = sells
	}

	if category == internal.CategoryMod || category == internal.CategoryArcane {
		unranked := filterOrders(pool, func(o order) bool { return o.ModRank == nil || *o.ModRank == 0 })
		if len(unranked) > 0 {
			pool = unranked
		}
	}

	min := decimal.NewFromFloat(pool[0].Platinum)
	for _, o := range pool[1:] {
		if p := decimal.NewFromFloat(o.Platinum); p.LessThan(min) {
			min = p
		}
	}
	return min, true
}

func filterOrders(orders []order, keep func(order) bool) []order {
	out := make([]order, 0, len(orders))
	for _, o := range orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string) ([]byte, error) {
	baseURL := strings.TrimRight(c.cfg.MarketAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	attempts := c.cfg.PriceRetryMax
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Platform", c.cfg.MarketPlatform)
		req.Header.Set("Language", "en")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: status=%d", ErrAuth, resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, endpoint)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			if isRetryableStatus(resp.StatusCode) && attempt < attempts {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("market status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("market api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, err
		}
		if apiResp.Error != nil {
			return nil, fmt.Errorf("market api unsuccessful: %s", *apiResp.Error)
		}
		return apiResp.Payload, nil
	}

	if lastErr == nil {
		lastErr = errors.New("market request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
