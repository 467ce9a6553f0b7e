package memo

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/zeebo/xxh3"
)

const (
	keySeparator        = ":"
	refreshMarkerSuffix = ":refresh"
)

// refreshSentinel is the payload stored under a refresh marker key. Only its
// presence matters.
var refreshSentinel = []byte("1")

// DeriveKey builds the cache key for a computation identity and its parameters.
//
// Parameters are encoded as canonical JSON (map keys sorted) and digested with
// 128-bit xxh3, so equal parameters always map to the same key and distinct
// parameters collide only with negligible probability. Parameters that cannot be
// encoded yield a *KeyError.
//
// Example: derive a key
//
//	key, _ := memo.DeriveKey("reports.MonthlyTotals", map[string]any{"month": 3, "region": "eu"})
//	fmt.Println(strings.HasPrefix(key, "reports.MonthlyTotals:")) // true
func DeriveKey(identity string, params any) (string, error) {
	if strings.TrimSpace(identity) == "" {
		return "", &KeyError{Identity: identity, Err: errEmptyIdentity}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return "", &KeyError{Identity: identity, Err: err}
	}
	sum := xxh3.Hash128(body)
	return identity + keySeparator + fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo), nil
}

// RefreshKey returns the refresh marker key paired with cacheKey.
func RefreshKey(cacheKey string) string {
	return cacheKey + refreshMarkerSuffix
}
