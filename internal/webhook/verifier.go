// internal/webhook/verifier.go
package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"net/http"
	"net/url"
	"strings"

	"billing-service/config"
	"billing-service/internal/domain"
)

// Verifier authenticates inbound webhooks before any field of theirs is
// allowed to drive a state transition. HMACs are always computed over the
// raw, unparsed body bytes.
type Verifier struct {
	interSecret   string
	mpSecret      string
	pagarmeSecret string
}

func NewVerifier(inter config.InterbankConfig, mp config.MercadoPagoConfig, pagarme config.PagarmeConfig) *Verifier {
	return &Verifier{
		interSecret:   inter.WebhookSecret,
		mpSecret:      mp.WebhookSecret,
		pagarmeSecret: pagarme.WebhookSecret,
	}
}

func (v *Verifier) Verify(provider domain.Provider, rawBody []byte, header http.Header, query url.Values) error {
	switch provider {
	case domain.ProviderBankPix:
		return v.verifyRawHMAC(header.Get("X-Inter-Signature"), v.interSecret, rawBody)
	case domain.ProviderPagarme:
		return v.verifyHubSignature(header.Get("X-Hub-Signature"), v.pagarmeSecret, rawBody)
	case domain.ProviderMercadoPago:
		return v.verifyTemplateSignature(header, query, v.mpSecret)
	default:
		return fmt.Errorf("%w: unknown provider %q", domain.ErrUnauthorized, provider)
	}
}

// verifyRawHMAC checks a bare hex HMAC-SHA256 over the body.
func (v *Verifier) verifyRawHMAC(signature, secret string, rawBody []byte) error {
	if signature == "" {
		return fmt.Errorf("%w: missing signature header", domain.ErrUnauthorized)
	}
	expected := computeHMAC(sha256.New, secret, rawBody)
	if !hmacEqualHex(signature, expected) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrUnauthorized)
	}
	return nil
}

// verifyHubSignature checks the "<algo>=<hex>" form used by the checkout
// gateway.
func (v *Verifier) verifyHubSignature(signature, secret string, rawBody []byte) error {
	if signature == "" {
		return fmt.Errorf("%w: missing signature header", domain.ErrUnauthorized)
	}
	algo, signed, ok := strings.Cut(signature, "=")
	if !ok || signed == "" {
		return fmt.Errorf("%w: malformed signature header", domain.ErrUnauthorized)
	}

	var newHash func() hash.Hash
	switch algo {
	case "sha256":
		newHash = sha256.New
	case "sha1":
		newHash = sha1.New
	default:
		return fmt.Errorf("%w: unsupported signature algorithm %q", domain.ErrUnauthorized, algo)
	}

	expected := computeHMAC(newHash, secret, rawBody)
	if !hmacEqualHex(signed, expected) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrUnauthorized)
	}
	return nil
}

// verifyTemplateSignature checks the gateway's "ts=...,v1=..." header. The
// digest covers a template of the notification id, request id and timestamp
// rather than the body; the body itself is therefore untrusted and the engine
// re-fetches the payment over the authenticated API.
func (v *Verifier) verifyTemplateSignature(header http.Header, query url.Values, secret string) error {
	signature := header.Get("X-Signature")
	if signature == "" {
		return fmt.Errorf("%w: missing signature header", domain.ErrUnauthorized)
	}

	var ts, v1 string
	for _, part := range strings.Split(signature, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	if ts == "" || v1 == "" {
		return fmt.Errorf("%w: malformed signature header", domain.ErrUnauthorized)
	}

	template := fmt.Sprintf("id:%s;request-id:%s;ts:%s;",
		query.Get("data.id"), header.Get("X-Request-Id"), ts)

	expected := computeHMAC(sha256.New, secret, []byte(template))
	if !hmacEqualHex(v1, expected) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrUnauthorized)
	}
	return nil
}

func computeHMAC(newHash func() hash.Hash, secret string, data []byte) []byte {
	mac := hmac.New(newHash, []byte(secret))
	mac.Write(data)
	return mac.Sum(nil)
}

func hmacEqualHex(gotHex string, expected []byte) bool {
	got, err := hex.DecodeString(gotHex)
	if err != nil {
		return false
	}
	return hmac.Equal(got, expected)
}
