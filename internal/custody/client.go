package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to the key-custody service that provisions per-chain
// wallets on registration and decrypts their private keys on demand.
// The bot never sees key material at rest; only the api_key reference
// is stored locally.
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

// ChainKey is the decrypted key material for one chain.
type ChainKey struct {
	PrivateKey string `json:"private_key"`
}

// Keys groups the per-chain private keys returned by the custody service.
type Keys struct {
	Solana   ChainKey `json:"solana"`
	Bitcoin  ChainKey `json:"bitcoin"`
	Ethereum ChainKey `json:"ethereum"`
}

// Provision asks the custody service to generate wallets for a newly
// registered user and returns the credential reference for later exports.
func (c *Client) Provision(ctx context.Context, userID int64) (string, error) {
	var result struct {
		APIKey string `json:"api_key"`
	}
	payload := map[string]int64{"user_id": userID}
	if err := c.postJSON(ctx, "/register", payload, &result); err != nil {
		return "", err
	}
	if result.APIKey == "" {
		return "", fmt.Errorf("custody service returned no api key")
	}
	return result.APIKey, nil
}

// DecryptKeys exchanges a credential reference for the user's decrypted
// per-chain private keys.
func (c *Client) DecryptKeys(ctx context.Context, apiKey string) (*Keys, error) {
	var keys Keys
	payload := map[string]string{"api_key": apiKey}
	if err := c.postJSON(ctx, "/decrypt_keys", payload, &keys); err != nil {
		return nil, err
	}
	return &keys, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("custody request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("custody service returned status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode custody response: %w", err)
	}
	return nil
}
