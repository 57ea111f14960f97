package handler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, json.Number("92.0000"), formatAmount(decimal.RequireFromString("92")))
	assert.Equal(t, json.Number("0.1235"), formatAmount(decimal.RequireFromString("0.12345")))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, json.Number("0.920000"), formatRate(decimal.RequireFromString("0.92")))
	assert.Equal(t, json.Number("151.500000"), formatRate(decimal.RequireFromString("151.5")))

	// Provider precision beyond six places is kept
	assert.Equal(t, json.Number("0.92345678"), formatRate(decimal.RequireFromString("0.92345678")))
}

func TestConvertRequestValidation(t *testing.T) {
	decode := func(t *testing.T, body string) ConvertRequest {
		t.Helper()
		var req ConvertRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		return req
	}

	t.Run("Valid request", func(t *testing.T) {
		req := decode(t, `{"sourceCurrency":"USD","targetCurrency":"EUR","amount":"0.01"}`)
		assert.NoError(t, validate.Struct(req))
		assert.Empty(t, validateConvertRequest(req))
	})

	t.Run("Messages use JSON field names", func(t *testing.T) {
		req := decode(t, `{"sourceCurrency":"USDX","amount":0.001}`)

		msg := validationMessage(validate.Struct(req))

		assert.Contains(t, msg, "sourceCurrency: must be a 3-letter currency code (e.g., USD)")
		assert.Contains(t, msg, "targetCurrency: is required")
		assert.Contains(t, msg, "amount: must be at least 0.01")
	})

	t.Run("Out of range amounts are rejected before float conversion", func(t *testing.T) {
		for body, want := range map[string]string{
			`{"sourceCurrency":"USD","targetCurrency":"EUR","amount":1e2000000000}`: "amount: must have at most 15 integer digits",
			`{"sourceCurrency":"USD","targetCurrency":"EUR","amount":1e-20000000}`:  "amount: must have at most 18 decimal places",
		} {
			req := decode(t, body)

			done := make(chan string, 1)
			go func() { done <- validateConvertRequest(req) }()

			select {
			case msg := <-done:
				assert.Equal(t, want, msg)
			case <-time.After(time.Second):
				t.Fatalf("validation of %s did not return promptly", body)
			}
		}
	})

	t.Run("Null amount is required", func(t *testing.T) {
		req := decode(t, `{"sourceCurrency":"USD","targetCurrency":"EUR","amount":null}`)

		assert.Equal(t, "amount: is required", validationMessage(validate.Struct(req)))
	})
}
