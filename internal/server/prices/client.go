// Package prices looks up closing prices from the Naver mobile stock API.
package prices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const userAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"

// Looker returns the closing price for a ticker. found is false when the
// quote service has no price for code.
type Looker interface {
	ClosePrice(ctx context.Context, code string) (price int64, found bool, err error)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type basicResponse struct {
	ClosePrice json.RawMessage `json:"closePrice"`
}

// ClosePrice fetches <base>/<code>/basic. Non-200 answers and bodies
// without closePrice are reported as not found; transport failures are
// returned as errors.
func (c *Client) ClosePrice(ctx context.Context, code string) (int64, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(code)+"/basic", nil)
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("price lookup %s: %w", code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, false, nil
	}

	var body basicResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, false, nil
	}
	return parsePrice(body.ClosePrice)
}

// parsePrice accepts a JSON number or a string with thousands separators.
func parsePrice(raw json.RawMessage) (int64, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false, nil
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false, nil
		}
	} else {
		s = string(raw)
	}

	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true, nil
	}
	return 0, false, nil
}
