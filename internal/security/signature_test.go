package security

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexHMAC256(secret, body string) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(body))
	return hex.EncodeToString(m.Sum(nil))
}

func TestExtractSignature_Priority(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, "", ExtractSignature(h))

	h.Set("Authorization", "Bearer tok")
	assert.Equal(t, "tok", ExtractSignature(h))

	h.Set("X-Twilio-Signature", "twilio")
	assert.Equal(t, "twilio", ExtractSignature(h))

	h.Set("X-Hub-Signature-256", "sha256=abc")
	assert.Equal(t, "sha256=abc", ExtractSignature(h))

	h.Set("X-Webhook-Signature", "webhook")
	assert.Equal(t, "webhook", ExtractSignature(h))

	h.Set("X-Signature", "primary")
	assert.Equal(t, "primary", ExtractSignature(h))
}

func TestExtractSignature_IgnoresNonBearerAuthorization(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Equal(t, "", ExtractSignature(h))

	h.Set("Authorization", "bearer lower")
	assert.Equal(t, "lower", ExtractSignature(h))
}

func TestVerifySignature_HMACSHA256(t *testing.T) {
	secret, body := "s3cret", `{"event":"call.completed"}`
	sig := hexHMAC256(secret, body)

	for _, provided := range []string{sig, "sha256=" + sig, "sha256:" + sig} {
		ok, err := VerifySignature(AlgorithmHMACSHA256, secret, []byte(body), "", provided)
		require.NoError(t, err)
		assert.True(t, ok, provided)
	}

	// flip one bit of the first hex digit
	raw, _ := hex.DecodeString(sig)
	raw[0] ^= 0x01
	ok, err := VerifySignature(AlgorithmHMACSHA256, secret, []byte(body), "", hex.EncodeToString(raw))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = VerifySignature(AlgorithmHMACSHA256, secret, []byte(body), "", "sha1="+sig)
	assert.False(t, ok)
}

func TestVerifySignature_HMACSHA1(t *testing.T) {
	secret, body := "k", "payload"
	m := hmac.New(sha1.New, []byte(secret))
	m.Write([]byte(body))
	sig := hex.EncodeToString(m.Sum(nil))

	ok, err := VerifySignature(AlgorithmHMACSHA1, secret, []byte(body), "", "sha1="+sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = VerifySignature(AlgorithmHMACSHA1, secret, []byte(body), "", "sha256="+sig)
	assert.False(t, ok)
}

func TestVerifySignature_Twilio(t *testing.T) {
	secret := "twilio-token"
	url := "https://api.example.com/api/v1/webhooks/twilio/calls"
	body := "CallSid=CA123&CallStatus=completed"

	m := hmac.New(sha1.New, []byte(secret))
	m.Write([]byte(url + body))
	sig := base64.StdEncoding.EncodeToString(m.Sum(nil))

	ok, err := VerifySignature(AlgorithmTwilio, secret, []byte(body), url, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	// no prefixed variants for twilio
	ok, _ = VerifySignature(AlgorithmTwilio, secret, []byte(body), url, "sha1="+sig)
	assert.False(t, ok)

	// url is part of the signed payload
	ok, _ = VerifySignature(AlgorithmTwilio, secret, []byte(body), url+"?x=1", sig)
	assert.False(t, ok)
}

func TestVerifySignature_UnknownAlgorithm(t *testing.T) {
	ok, err := VerifySignature("md5", "s", []byte("b"), "", "anything")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	assert.False(t, ok)
	assert.False(t, ValidAlgorithm("md5"))
	assert.True(t, ValidAlgorithm(AlgorithmTwilio))
}
