package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	depositAddressesPath = "/0/private/DepositAddresses"
	depositStatusPath    = "/0/private/DepositStatus"
	tickerPath           = "/0/public/Ticker"
)

// TransportError means the request never got an answer from the exchange:
// connection failure, timeout, non-2xx status or an unreadable body.
// Retrying is the caller's decision.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("exchange unreachable: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError means the exchange understood the request and refused it.
// Reasons holds the error strings from the response body verbatim.
type RejectedError struct {
	Reasons []string
}

func (e *RejectedError) Error() string {
	return "exchange rejected request: " + strings.Join(e.Reasons, "; ")
}

// Client issues signed requests against the exchange REST API.
type Client struct {
	apiKey  string
	secret  string
	baseURL string
	http    *http.Client

	// nonce must strictly increase per credential pair. Seeded from the
	// wall clock in milliseconds, bumped past the previous value when
	// calls land inside the same millisecond or the clock steps back.
	nonceMu   sync.Mutex
	lastNonce int64
}

func NewClient(apiKey, secret, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		secret:  secret,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) nonce() string {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()
	n := time.Now().UnixMilli()
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return strconv.FormatInt(n, 10)
}

type depositAddress struct {
	Address  string `json:"address"`
	ExpireTm any    `json:"expiretm"` // string or number depending on method
	New      bool   `json:"new"`
}

// DepositAddress requests a custodial deposit address for the given asset
// and funding method. With createNew the exchange always mints a fresh
// address instead of reusing an outstanding one.
func (c *Client) DepositAddress(ctx context.Context, asset, method string, createNew bool, amt decimal.Decimal) (string, error) {
	fields := url.Values{}
	fields.Set("nonce", c.nonce())
	fields.Set("asset", asset)
	fields.Set("method", method)
	fields.Set("new", strconv.FormatBool(createNew))
	fields.Set("amount", amt.String())

	var addrs []depositAddress
	if err := c.post(ctx, depositAddressesPath, fields, &addrs); err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", &RejectedError{Reasons: []string{"empty deposit address list"}}
	}
	return addrs[0].Address, nil
}

// Deposit is one entry from the DepositStatus listing. Info carries the
// deposit address (or invoice) the funds arrived on.
type Deposit struct {
	Method string `json:"method"`
	Asset  string `json:"asset"`
	TxID   string `json:"txid"`
	Info   string `json:"info"`
	Amount string `json:"amount"`
	Time   int64  `json:"time"`
	Status string `json:"status"` // "Success" once settled
}

// DepositStatus lists recent deposits for the asset/method pair.
func (c *Client) DepositStatus(ctx context.Context, asset, method string) ([]Deposit, error) {
	fields := url.Values{}
	fields.Set("nonce", c.nonce())
	fields.Set("asset", asset)
	fields.Set("method", method)

	var deposits []Deposit
	if err := c.post(ctx, depositStatusPath, fields, &deposits); err != nil {
		return nil, err
	}
	return deposits, nil
}

type tickerInfo struct {
	Close []string `json:"c"` // [price, lot volume]
}

// AssetPrice returns the last trade price in USD for the given asset via
// the public Ticker endpoint (no signing).
func (c *Client) AssetPrice(ctx context.Context, asset string) (decimal.Decimal, error) {
	pair := asset + "USD"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+tickerPath+"?pair="+url.QueryEscape(pair), nil)
	if err != nil {
		return decimal.Decimal{}, &TransportError{Err: err}
	}

	var pairs map[string]tickerInfo
	if err := c.do(req, &pairs); err != nil {
		return decimal.Decimal{}, err
	}
	for _, info := range pairs {
		if len(info.Close) == 0 {
			continue
		}
		price, err := decimal.NewFromString(info.Close[0])
		if err != nil {
			return decimal.Decimal{}, &TransportError{Err: fmt.Errorf("parse price %q: %w", info.Close[0], err)}
		}
		return price, nil
	}
	return decimal.Decimal{}, &RejectedError{Reasons: []string{"no ticker data for " + pair}}
}

func (c *Client) post(ctx context.Context, path string, fields url.Values, result any) error {
	sig, err := Sign(path, fields, c.secret)
	if err != nil {
		// Malformed secret is a configuration error, never retried.
		return fmt.Errorf("sign request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(fields.Encode()))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("API-Sign", sig)
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var envelope struct {
		Error  []string        `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(envelope.Error) > 0 {
		return &RejectedError{Reasons: envelope.Error}
	}
	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return &TransportError{Err: fmt.Errorf("decode result: %w", err)}
		}
	}
	return nil
}
