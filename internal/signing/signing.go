// Package signing holds the pure HMAC primitives shared by the service and
// socket authentication paths. Nothing here logs or retains the secret.
package signing

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// SignatureParam is excluded from the canonical string.
const SignatureParam = "auth_signature"

// Sign returns the lowercase hex HMAC-SHA256 of canonical keyed by secret.
func Sign(secret string, canonical string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

func BodyMD5(body []byte) string {
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:])
}

// CanonicalRequest builds METHOD\nPATH\nk=v&k=v with lowercased keys in
// ascending order and unescaped values. Repeated keys are comma-joined.
func CanonicalRequest(method string, path string, params url.Values) string {
	merged := make(map[string][]string, len(params))
	for key, values := range params {
		lower := strings.ToLower(key)
		if lower == SignatureParam {
			continue
		}
		merged[lower] = append(merged[lower], values...)
	}
	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+strings.Join(merged[key], ","))
	}
	return strings.ToUpper(method) + "\n" + path + "\n" + strings.Join(pairs, "&")
}
