package kraken

import (
	"net/url"
	"testing"
)

const testSecret = "kQH5HW/8p1uGOVjbgWA7FunAmGO8lsSUXNsu3eow76sz84Q18fWxnyRzBHCd3pd5nE9qa99HAZtuZuj6F1huXg=="

func signFields() url.Values {
	return url.Values{
		"nonce":     {"1616492376594"},
		"ordertype": {"limit"},
		"pair":      {"XBTUSD"},
		"price":     {"37500"},
		"type":      {"buy"},
		"volume":    {"1.25"},
	}
}

// Vector from the exchange's API documentation.
func TestSign_KnownVector(t *testing.T) {
	got, err := Sign("/0/private/AddOrder", signFields(), testSecret)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	want := "4/dpxb3iT4tp/ZCVEwSnEsLxx0bqyhLpdfOpc6fn7OR8+UClSV5n9E6aSS8MPtnRfp32bAb0nmbRn6H8ndwLUQ=="
	if got != want {
		t.Errorf("Sign = %q, want %q", got, want)
	}
}

func TestSign_Deterministic(t *testing.T) {
	first, err := Sign("/0/private/AddOrder", signFields(), testSecret)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	second, err := Sign("/0/private/AddOrder", signFields(), testSecret)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if first != second {
		t.Errorf("same input produced different tokens: %q vs %q", first, second)
	}
}

func TestSign_FieldChangesToken(t *testing.T) {
	base, err := Sign("/0/private/AddOrder", signFields(), testSecret)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	changed := signFields()
	changed.Set("volume", "1.26")
	got, err := Sign("/0/private/AddOrder", changed, testSecret)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if got == base {
		t.Error("changing a field value did not change the token")
	}

	otherPath, err := Sign("/0/private/Withdraw", signFields(), testSecret)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if otherPath == base {
		t.Error("changing the path did not change the token")
	}
}

func TestSign_MalformedSecret(t *testing.T) {
	if _, err := Sign("/0/private/AddOrder", signFields(), "not base64!!"); err == nil {
		t.Error("expected error for malformed secret")
	}
}
