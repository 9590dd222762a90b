package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"
)

// signer produces Binance's query-string signatures: a millisecond timestamp
// joins the parameter set, the whole encoded query is HMAC-SHA256'd with the
// API secret and the hex digest is appended as the signature parameter. The
// API key travels as a header, not as part of the signature.
type signer struct {
	apiKey string
	secret string
	now    func() time.Time
}

func newSigner(apiKey, secret string) *signer {
	return &signer{apiKey: apiKey, secret: secret, now: time.Now}
}

// sign returns the hex HMAC-SHA256 of payload keyed by the API secret.
func (s *signer) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// signedQuery stamps the parameters, encodes them and appends the signature.
// The returned string must be sent exactly as-is; re-encoding it would break
// verification.
func (s *signer) signedQuery(params url.Values) string {
	params.Set("timestamp", strconv.FormatInt(s.now().UnixMilli(), 10))
	encoded := params.Encode()
	return encoded + "&signature=" + s.sign(encoded)
}
