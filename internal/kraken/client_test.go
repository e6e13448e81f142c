package kraken

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDepositAddress_Success(t *testing.T) {
	var gotSig, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != depositAddressesPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("API-Key")
		gotSig = r.Header.Get("API-Sign")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("asset"); got != "XXBT" {
			t.Errorf("asset = %q, want XXBT", got)
		}
		if got := r.PostForm.Get("method"); got != "Bitcoin Lightning" {
			t.Errorf("method = %q, want Bitcoin Lightning", got)
		}
		if got := r.PostForm.Get("new"); got != "true" {
			t.Errorf("new = %q, want true", got)
		}
		if got := r.PostForm.Get("amount"); got != "0.005" {
			t.Errorf("amount = %q, want 0.005", got)
		}
		if r.PostForm.Get("nonce") == "" {
			t.Error("nonce missing from request body")
		}

		// The header must verify against the exact fields received.
		want, err := Sign(depositAddressesPath, r.PostForm, testSecret)
		if err != nil {
			t.Fatalf("recompute signature: %v", err)
		}
		if gotSig != want {
			t.Errorf("API-Sign = %q, want %q", gotSig, want)
		}

		w.Write([]byte(`{"error":[],"result":[{"address":"lnbc500u1p3example","expiretm":"0","new":true}]}`))
	}))
	defer server.Close()

	c := NewClient("test-key", testSecret, server.URL, 5*time.Second)
	addr, err := c.DepositAddress(context.Background(), "XXBT", "Bitcoin Lightning", true, decimal.RequireFromString("0.005"))
	if err != nil {
		t.Fatalf("DepositAddress returned error: %v", err)
	}
	if addr != "lnbc500u1p3example" {
		t.Errorf("address = %q", addr)
	}
	if gotKey != "test-key" {
		t.Errorf("API-Key = %q, want test-key", gotKey)
	}
}

func TestDepositAddress_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EFunding:Invalid amount"]}`))
	}))
	defer server.Close()

	c := NewClient("test-key", testSecret, server.URL, 5*time.Second)
	_, err := c.DepositAddress(context.Background(), "XXBT", "Bitcoin Lightning", true, decimal.RequireFromString("0.005"))

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("error = %v, want RejectedError", err)
	}
	if len(rejected.Reasons) != 1 || rejected.Reasons[0] != "EFunding:Invalid amount" {
		t.Errorf("reasons = %v", rejected.Reasons)
	}
}

func TestDepositAddress_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient("test-key", testSecret, server.URL, 5*time.Second)
	_, err := c.DepositAddress(context.Background(), "XXBT", "Bitcoin Lightning", true, decimal.RequireFromString("0.005"))

	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("error = %v, want TransportError", err)
	}
}

func TestDepositAddress_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := NewClient("test-key", testSecret, server.URL, time.Second)
	_, err := c.DepositAddress(context.Background(), "XXBT", "Bitcoin Lightning", true, decimal.RequireFromString("0.005"))

	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("error = %v, want TransportError", err)
	}
}

func TestDepositStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != depositStatusPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"error":[],"result":[
			{"method":"Bitcoin Lightning","asset":"XXBT","txid":"tx1","info":"lnbc1addr","amount":"0.005","time":1700000000,"status":"Success"},
			{"method":"Bitcoin Lightning","asset":"XXBT","txid":"tx2","info":"lnbc2addr","amount":"0.01","time":1700000100,"status":"Pending"}
		]}`))
	}))
	defer server.Close()

	c := NewClient("test-key", testSecret, server.URL, 5*time.Second)
	deposits, err := c.DepositStatus(context.Background(), "XXBT", "Bitcoin Lightning")
	if err != nil {
		t.Fatalf("DepositStatus returned error: %v", err)
	}
	if len(deposits) != 2 {
		t.Fatalf("got %d deposits, want 2", len(deposits))
	}
	if deposits[0].Status != "Success" || deposits[0].Info != "lnbc1addr" {
		t.Errorf("unexpected first deposit: %+v", deposits[0])
	}
}

func TestAssetPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tickerPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("pair"); got != "XBTUSD" {
			t.Errorf("pair = %q, want XBTUSD", got)
		}
		if r.Header.Get("API-Sign") != "" {
			t.Error("public endpoint must not be signed")
		}
		w.Write([]byte(`{"error":[],"result":{"XXBTZUSD":{"c":["64123.40000","0.01"]}}}`))
	}))
	defer server.Close()

	c := NewClient("", "", server.URL, 5*time.Second)
	price, err := c.AssetPrice(context.Background(), "XBT")
	if err != nil {
		t.Fatalf("AssetPrice returned error: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("64123.4")) {
		t.Errorf("price = %s, want 64123.4", price)
	}
}

func TestNonce_StrictlyIncreasing(t *testing.T) {
	c := NewClient("k", testSecret, "http://localhost", time.Second)

	prev := int64(0)
	for i := 0; i < 1000; i++ {
		n, err := strconv.ParseInt(c.nonce(), 10, 64)
		if err != nil {
			t.Fatalf("nonce is not numeric: %v", err)
		}
		if n <= prev {
			t.Fatalf("nonce %d not greater than previous %d", n, prev)
		}
		prev = n
	}
}
