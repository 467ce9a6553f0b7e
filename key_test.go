package memo

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestDeriveKeyIsStableForEqualParams(t *testing.T) {
	type query struct {
		Region string
		Month  int
	}
	a, err := DeriveKey("reports.Totals", query{Region: "eu", Month: 3})
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	b, err := DeriveKey("reports.Totals", query{Region: "eu", Month: 3})
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if a != b {
		t.Fatalf("expected equal keys, got %q and %q", a, b)
	}
	if !strings.HasPrefix(a, "reports.Totals:") {
		t.Fatalf("expected identity prefix, got %q", a)
	}
	if len(a) != len("reports.Totals:")+32 {
		t.Fatalf("expected 128-bit hex digest, got %q", a)
	}
}

func TestDeriveKeyMapOrderDoesNotMatter(t *testing.T) {
	first := map[string]any{"a": 1, "b": "two", "c": []int{3}}
	second := map[string]any{"c": []int{3}, "b": "two", "a": 1}
	k1, err := DeriveKey("id", first)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	k2, err := DeriveKey("id", second)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if k1 != k2 {
		t.Fatalf("expected map order independence, got %q vs %q", k1, k2)
	}
}

func TestDeriveKeyDistinguishesParamsAndIdentity(t *testing.T) {
	base, _ := DeriveKey("id", []int{1, 2})
	cases := map[string]struct {
		identity string
		params   any
	}{
		"different params":   {identity: "id", params: []int{2, 1}},
		"different identity": {identity: "other", params: []int{1, 2}},
		"nil params":         {identity: "id", params: nil},
		"empty list":         {identity: "id", params: []int{}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			key, err := DeriveKey(tc.identity, tc.params)
			if err != nil {
				t.Fatalf("derive failed: %v", err)
			}
			if key == base {
				t.Fatalf("expected distinct key for %v", tc.params)
			}
		})
	}
}

func TestDeriveKeyErrors(t *testing.T) {
	if _, err := DeriveKey("  ", nil); !errors.Is(err, ErrKeyDerivation) {
		t.Fatalf("expected key derivation error for blank identity, got %v", err)
	}

	_, err := DeriveKey("id", map[string]any{"fn": func() {}})
	if !errors.Is(err, ErrKeyDerivation) {
		t.Fatalf("expected key derivation error for func param, got %v", err)
	}
	var keyErr *KeyError
	if !errors.As(err, &keyErr) || keyErr.Identity != "id" {
		t.Fatalf("expected *KeyError for id, got %#v", err)
	}

	if _, err := DeriveKey("id", math.Inf(1)); !errors.Is(err, ErrKeyDerivation) {
		t.Fatalf("expected key derivation error for +Inf, got %v", err)
	}
}

func TestRefreshKey(t *testing.T) {
	if got := RefreshKey("id:abc"); got != "id:abc:refresh" {
		t.Fatalf("unexpected refresh key %q", got)
	}
}
