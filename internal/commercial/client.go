// Package commercial talks to the point-of-sale JSON API: token auth,
// paged assortment, retail demand and returns.
package commercial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"beersync/internal"
	"beersync/internal/config"
	"beersync/internal/nameparse"
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
	token      string
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.CommercialTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.CommercialRateLimitRPS),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type listResponse struct {
	Rows []json.RawMessage `json:"rows"`
}

type assortmentRow struct {
	ID         string   `json:"id"`
	ParentID   string   `json:"parentId"`
	Name       string   `json:"name"`
	PathName   *string  `json:"pathName"`
	Volume     *float64 `json:"volume"`
	Quantity   *float64 `json:"quantity"`
	Attributes []struct {
		Name  string          `json:"name"`
		Value json.RawMessage `json:"value"`
	} `json:"attributes"`
	Characteristics []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"characteristics"`
	SalePrices []struct {
		Value float64 `json:"value"`
	} `json:"salePrices"`
}

type demandRow struct {
	Positions struct {
		Rows []struct {
			Quantity   float64 `json:"quantity"`
			Assortment struct {
				ID string `json:"id"`
			} `json:"assortment"`
		} `json:"rows"`
	} `json:"positions"`
}

// Authenticate obtains a bearer token with the configured basic-auth
// credentials.
func (c *Client) Authenticate(ctx context.Context) error {
	if err := c.cfg.Require("COMMERCIAL_LOGIN", c.cfg.CommercialLogin); err != nil {
		return err
	}
	if err := c.cfg.Require("COMMERCIAL_PASSWORD", c.cfg.CommercialPassword); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("security/token"), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.CommercialLogin, c.cfg.CommercialPassword)

	c.limiter.WaitTurn()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pos token error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return err
	}
	if token.AccessToken == "" {
		return errors.New("pos token response has no access_token")
	}
	c.token = token.AccessToken
	return nil
}

// Assortment fetches the beer folder page by page and converts every
// sellable row into a parsed commercial product. Bundle rows (no own
// on-hand quantity) are skipped: a 1l draft bundle is two 0.5l goods.
func (c *Client) Assortment(ctx context.Context) ([]internal.CommercialProduct, error) {
	products := make([]internal.CommercialProduct, 0, c.cfg.CommercialPageSize)

	for offset := 0; ; offset += c.cfg.CommercialPageSize {
		params := url.Values{}
		params.Set("filter", "productFolder="+c.endpoint("entity/productfolder/"+c.cfg.CommercialFolderID))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("limit", strconv.Itoa(c.cfg.CommercialPageSize))

		body, err := c.fetchJSON(ctx, "entity/assortment", params)
		if err != nil {
			return nil, err
		}

		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, err
		}
		for _, raw := range page.Rows {
			var row assortmentRow
			if err := json.Unmarshal(raw, &row); err != nil {
				continue
			}
			if product, ok := toProduct(row); ok {
				products = append(products, product)
			}
		}

		if len(page.Rows) < c.cfg.CommercialPageSize {
			return products, nil
		}
	}
}

// RetailDemand returns the sold positions for one date.
func (c *Client) RetailDemand(ctx context.Context, date string) ([]internal.SaleLine, error) {
	return c.retailLines(ctx, "entity/retaildemand", date)
}

// RetailReturns returns the returned positions for one date.
func (c *Client) RetailReturns(ctx context.Context, date string) ([]internal.SaleLine, error) {
	return c.retailLines(ctx, "entity/retailsalesreturn", date)
}

func (c *Client) retailLines(ctx context.Context, entity, date string) ([]internal.SaleLine, error) {
	params := url.Values{}
	params.Add("filter", "organization="+c.endpoint("entity/organization/"+c.cfg.CommercialOrgID))
	if c.cfg.CommercialStoreID != "" {
		params.Add("filter", "retailStore="+c.endpoint("entity/retailstore/"+c.cfg.CommercialStoreID))
	}
	params.Add("filter", fmt.Sprintf("moment>%s 00:00:00", date))
	params.Add("filter", fmt.Sprintf("moment<%s 23:59:00", date))
	params.Set("expand", "positions,positions.assortment")
	params.Set("limit", "100")

	var lines []internal.SaleLine
	for offset := 0; ; offset += 100 {
		params.Set("offset", strconv.Itoa(offset))
		body, err := c.fetchJSON(ctx, entity, params)
		if err != nil {
			return nil, err
		}

		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, err
		}
		for _, raw := range page.Rows {
			var row demandRow
			if err := json.Unmarshal(raw, &row); err != nil {
				continue
			}
			for _, pos := range row.Positions.Rows {
				if pos.Assortment.ID == "" {
					continue
				}
				lines = append(lines, internal.SaleLine{UUID: pos.Assortment.ID, Quantity: int(pos.Quantity)})
			}
		}

		if len(page.Rows) < 100 {
			return lines, nil
		}
	}
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.CommercialBaseURL, "/") + "/" + path
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.token == "" {
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(c.endpoint(endpoint))
	if err != nil {
		return nil, err
	}
	u.RawQuery = params.Encode()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

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

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("pos status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("pos api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("pos request failed")
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

// toProduct parses one assortment row. Negative on-hand quantities (the
// POS reports oversells that way) clamp to zero.
func toProduct(row assortmentRow) (internal.CommercialProduct, bool) {
	if row.Quantity == nil || strings.TrimSpace(row.Name) == "" {
		return internal.CommercialProduct{}, false
	}

	in := nameparse.Input{
		RawName:          row.Name,
		ExplicitCapacity: row.Volume,
	}
	if row.PathName != nil {
		in.PathName = *row.PathName
	}
	for _, attr := range row.Attributes {
		var value string
		if err := json.Unmarshal(attr.Value, &value); err != nil {
			value = string(attr.Value)
		}
		in.Flags = append(in.Flags, nameparse.Flag{Name: attr.Name, Value: value})
	}
	for _, char := range row.Characteristics {
		in.Modifications = append(in.Modifications, nameparse.Modification{Name: char.Name, Value: char.Value})
	}

	parsed := nameparse.Parse(in)

	quantity := int(*row.Quantity)
	if quantity < 0 {
		quantity = 0
	}

	product := internal.CommercialProduct{
		UUID:       row.ID,
		ParentUUID: row.ParentID,
		FullName:   row.Name,
		Brewery:    parsed.Brewery,
		Name:       parsed.Name,
		Style:      parsed.Style,
		ABV:        parsed.ABV,
		OG:         parsed.OG,
		IBU:        parsed.IBU,
		IsAlco:     parsed.IsAlco,
		IsDraft:    parsed.IsDraft,
		Kind:       parsed.Kind,
		Capacity:   parsed.Capacity,
		Quantity:   quantity,
	}
	if row.PathName != nil {
		product.PathName = *row.PathName
	}
	if len(row.SalePrices) > 0 {
		// Prices arrive in kopecks.
		product.Price = decimal.NewFromFloat(row.SalePrices[0].Value).Div(decimal.NewFromInt(100))
	}

	return product, true
}
