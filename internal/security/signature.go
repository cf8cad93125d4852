package security

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"hash"
	"net/http"
	"strings"
)

// Signature algorithms accepted on webhook settings.
const (
	AlgorithmHMACSHA256 = "hmac_sha256"
	AlgorithmHMACSHA1   = "hmac_sha1"
	AlgorithmTwilio     = "twilio"
)

var ErrUnknownAlgorithm = errors.New("unknown signature algorithm")

// SignatureHeaders are consulted in order; the first non-empty value wins.
// A bearer token in Authorization is the last resort.
var SignatureHeaders = []string{
	"X-Signature",
	"X-Webhook-Signature",
	"X-Hub-Signature-256",
	"X-Twilio-Signature",
}

// ValidAlgorithm reports whether alg is a supported signature algorithm.
func ValidAlgorithm(alg string) bool {
	switch alg {
	case AlgorithmHMACSHA256, AlgorithmHMACSHA1, AlgorithmTwilio:
		return true
	}
	return false
}

// ExtractSignature returns the caller-supplied signature from h.
func ExtractSignature(h http.Header) string {
	for _, name := range SignatureHeaders {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}
	auth := strings.TrimSpace(h.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// ExpectedSignature computes the signature the provider should have sent.
// HMAC algorithms return a hex digest of body; Twilio returns the base64
// HMAC-SHA1 of url followed by body.
func ExpectedSignature(algorithm, secret string, body []byte, url string) (string, error) {
	switch algorithm {
	case AlgorithmHMACSHA256:
		return hex.EncodeToString(sum(sha256.New, secret, body)), nil
	case AlgorithmHMACSHA1:
		return hex.EncodeToString(sum(sha1.New, secret, body)), nil
	case AlgorithmTwilio:
		payload := append([]byte(url), body...)
		return base64.StdEncoding.EncodeToString(sum(sha1.New, secret, payload)), nil
	default:
		return "", ErrUnknownAlgorithm
	}
}

// VerifySignature compares provided against the expected signature. HMAC
// algorithms also accept the "sha256=" / "sha256:" (or sha1) prefixed forms.
func VerifySignature(algorithm, secret string, body []byte, url, provided string) (bool, error) {
	expected, err := ExpectedSignature(algorithm, secret, body, url)
	if err != nil {
		return false, err
	}

	candidates := []string{expected}
	switch algorithm {
	case AlgorithmHMACSHA256:
		candidates = append(candidates, "sha256="+expected, "sha256:"+expected)
	case AlgorithmHMACSHA1:
		candidates = append(candidates, "sha1="+expected, "sha1:"+expected)
	}

	ok := false
	for _, c := range candidates {
		if hmac.Equal([]byte(c), []byte(provided)) {
			ok = true
		}
	}
	return ok, nil
}

func sum(h func() hash.Hash, secret string, payload []byte) []byte {
	mac := hmac.New(h, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}
