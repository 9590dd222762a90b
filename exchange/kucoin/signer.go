package kucoin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"
)

// signer produces KuCoin's header signatures: HMAC-SHA256 over
// timestamp+verb+path(+query)+body, base64-encoded, sent alongside the raw
// timestamp, the API key and a passphrase signature. The passphrase signature
// is itself an HMAC of the passphrase keyed by the secret, derived once here.
type signer struct {
	apiKey     string
	secret     string
	passphrase string
	now        func() time.Time
}

func newSigner(apiKey, secret, passphrase string) *signer {
	return &signer{
		apiKey:     apiKey,
		secret:     secret,
		passphrase: base64.StdEncoding.EncodeToString(hmacSHA256(secret, passphrase)),
		now:        time.Now,
	}
}

// headers signs one request. pathWithQuery must be exactly what goes on the
// wire, and body the exact JSON bytes for POST (nil for GET/DELETE).
func (s *signer) headers(verb, pathWithQuery string, body []byte) map[string]string {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)
	payload := ts + verb + pathWithQuery + string(body)
	return map[string]string{
		"KC-API-KEY":         s.apiKey,
		"KC-API-SIGN":        base64.StdEncoding.EncodeToString(hmacSHA256(s.secret, payload)),
		"KC-API-TIMESTAMP":   ts,
		"KC-API-PASSPHRASE":  s.passphrase,
		"KC-API-KEY-VERSION": "2",
	}
}

func hmacSHA256(key, payload string) []byte {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
