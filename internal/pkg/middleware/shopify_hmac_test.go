package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHmacTestApp(secret string) *fiber.App {
	app := fiber.New()
	app.Post("/webhooks", VerifyShopifyHmac(secret), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyShopifyHmac_ValidSignature(t *testing.T) {
	app := newHmacTestApp("shhh")
	body := []byte(`{"id":42}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader(body))
	req.Header.Set(HeaderShopifyHmac, sign("shhh", body))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestVerifyShopifyHmac_InvalidSignature(t *testing.T) {
	app := newHmacTestApp("shhh")
	body := []byte(`{"id":42}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader(body))
	req.Header.Set(HeaderShopifyHmac, sign("wrong-secret", body))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyShopifyHmac_MissingHeader(t *testing.T) {
	app := newHmacTestApp("shhh")

	req := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader([]byte(`{}`)))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyShopifyHmac_TamperedBody(t *testing.T) {
	app := newHmacTestApp("shhh")

	req := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader([]byte(`{"id":43}`)))
	req.Header.Set(HeaderShopifyHmac, sign("shhh", []byte(`{"id":42}`)))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyShopifyHmac_DisabledWithoutSecret(t *testing.T) {
	app := newHmacTestApp("")

	req := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader([]byte(`{}`)))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
