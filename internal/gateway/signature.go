package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signature computes the gateway's documented confirmation signature:
// HMAC-SHA256 over "<remoteOrderID>|<remotePaymentID>" keyed with the
// shared secret, rendered as lowercase hex. Stateless and
// side-effect-free.
func Signature(remoteOrderID, remotePaymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(remoteOrderID + "|" + remotePaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected signature and compares it to
// the supplied one in constant time.
func VerifySignature(remoteOrderID, remotePaymentID, secret, supplied string) bool {
	expected := Signature(remoteOrderID, remotePaymentID, secret)
	return hmac.Equal([]byte(expected), []byte(supplied))
}
