// Package regulatory talks to the excise service: cookie-session login,
// the stock register list and the retail sales journal.
package regulatory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"beersync/internal"
	"beersync/internal/config"
	"beersync/internal/util"
)

// Excise codes are fixed-width; shorter codes are zero-padded on the left.
const codeWidth = 19

type Client struct {
	cfg        config.Config
	httpClient *http.Client
}

func NewClient(cfg config.Config) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: time.Duration(cfg.RegulatoryTimeout) * time.Millisecond,
		},
	}, nil
}

type restsResponse struct {
	List []restRow `json:"list"`
}

type restRow struct {
	Quantity     *float64 `json:"quantity"`
	ShopQuantity *float64 `json:"shopQuantity"`
	ProductInfo  struct {
		FullName  string   `json:"fullName"`
		EgaisCode string   `json:"egaisCode"`
		Capacity  *float64 `json:"capacity"`
		KindCode  int      `json:"productKindCode"`
		Producer  struct {
			ShortName string  `json:"shortName"`
			FullName  string  `json:"name"`
			INN       *string `json:"inn"`
			FSRARID   string  `json:"fsrarId"`
		} `json:"producer"`
	} `json:"productInfo"`
}

type journalDay struct {
	Day struct {
		Rows []json.RawMessage `json:"rows"`
	} `json:"day"`
}

// Login opens the service session. All later calls ride on the cookie jar.
func (c *Client) Login(ctx context.Context) error {
	if err := c.cfg.Require("REGULATORY_LOGIN", c.cfg.RegulatoryLogin); err != nil {
		return err
	}
	if err := c.cfg.Require("REGULATORY_PASSWORD", c.cfg.RegulatoryPassword); err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]any{
		"Login":    c.cfg.RegulatoryLogin,
		"Password": c.cfg.RegulatoryPassword,
		"Remember": false,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RegulatoryAuthURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("regulatory login failed: status=%d", resp.StatusCode)
	}
	return nil
}

// Rests fetches the excise catalog with its register quantities, sorted by
// producer short name the way the service presents it.
func (c *Client) Rests(ctx context.Context) ([]internal.RegulatoryProduct, error) {
	body, err := c.get(ctx, "Rests/List", nil)
	if err != nil {
		return nil, err
	}

	var payload restsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	goods := make([]internal.RegulatoryProduct, 0, len(payload.List))
	for _, row := range payload.List {
		goods = append(goods, toRegulatoryProduct(row))
	}
	return goods, nil
}

// JournalIsEmpty reports whether the remote sales journal has no rows for
// the date. The journal is only ever written into an empty day.
func (c *Client) JournalIsEmpty(ctx context.Context, date string) (bool, error) {
	body, err := c.get(ctx, "SalesJournal/Read", url.Values{"date": {date}})
	if err != nil {
		return false, err
	}

	var day journalDay
	if err := json.Unmarshal(body, &day); err != nil {
		return false, err
	}
	return len(day.Day.Rows) == 0, nil
}

// WriteJournal submits the journal entries for the date.
func (c *Client) WriteJournal(ctx context.Context, date string, entries []internal.JournalEntry) error {
	rows := make([]map[string]any, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, map[string]any{
			"rowId":    strconv.Itoa(i + 1),
			"alcCode":  e.Code,
			"apCode":   strconv.Itoa(e.KindCode),
			"volume":   strconv.FormatFloat(e.Capacity, 'f', -1, 64),
			"quantity": e.Quantity,
			"price":    int(e.Price.IntPart()),
			"rowType":  "New",
		})
	}

	payload, _ := json.Marshal(map[string]any{
		"day": map[string]any{
			"day":  date,
			"rows": rows,
		},
		"writeAutoRows": false,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("SalesJournal/Write"), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("journal write failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.RegulatoryBaseURL, "/") + "/" + path
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.cfg.Require("REGULATORY_API_BASE_URL", c.cfg.RegulatoryBaseURL); err != nil {
		return nil, err
	}

	u, err := url.Parse(c.endpoint(path))
	if err != nil {
		return nil, err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("regulatory api error: status=%d body=%s", resp.StatusCode, string(body))
	}
	return body, nil
}

func toRegulatoryProduct(row restRow) internal.RegulatoryProduct {
	good := internal.RegulatoryProduct{
		Code:     PadCode(row.ProductInfo.EgaisCode),
		FullName: row.ProductInfo.FullName,
		KindCode: row.ProductInfo.KindCode,
		Capacity: internal.BulkCapacity,
		Producer: internal.Producer{
			FSRARID:   row.ProductInfo.Producer.FSRARID,
			ShortName: row.ProductInfo.Producer.ShortName,
			FullName:  row.ProductInfo.Producer.FullName,
			INN:       row.ProductInfo.Producer.INN,
		},
	}
	if row.ProductInfo.Capacity != nil {
		good.Capacity = *row.ProductInfo.Capacity
	}
	if row.Quantity != nil {
		good.Stock.Warehouse = util.IntPtr(int(math.Round(*row.Quantity)))
	}
	if row.ShopQuantity != nil {
		good.Stock.Shop = util.IntPtr(int(math.Round(*row.ShopQuantity)))
	}
	return good
}

// PadCode left-pads an excise code with zeros to its fixed width.
func PadCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) >= codeWidth {
		return code
	}
	return strings.Repeat("0", codeWidth-len(code)) + code
}

var ErrJournalNotEmpty = errors.New("remote journal already has rows for the date")
