package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// patternPayload mirrors the cache-clear admin request body.
type patternPayload struct {
	Pattern string `json:"pattern" validate:"required,min=1"`
}

// limitPayload mirrors the pagination bounds the search endpoints
// enforce on their limit parameter.
type limitPayload struct {
	Limit int `json:"limit" validate:"gte=1,lte=100"`
}

func decodePayload(t *testing.T, body string, v interface{}) error {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/cache/clear", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return DecodeAndValidate(req, v)
}

func TestDecodeAndValidate_RejectsMalformedJSON(t *testing.T) {
	var payload patternPayload
	err := decodePayload(t, `{"pattern": `, &payload)

	require.Error(t, err)
	assert.Nil(t, FormatValidationErrors(err), "decode errors are not field errors")
}

func TestDecodeAndValidate_AcceptsValidPattern(t *testing.T) {
	var payload patternPayload
	err := decodePayload(t, `{"pattern":"search:*"}`, &payload)

	require.NoError(t, err)
	assert.Equal(t, "search:*", payload.Pattern)
}

func TestFormatValidationErrors_NamesTheField(t *testing.T) {
	var payload patternPayload
	err := decodePayload(t, `{}`, &payload)
	require.Error(t, err)

	fieldErrors := FormatValidationErrors(err)
	require.Len(t, fieldErrors, 1)
	assert.Equal(t, "Pattern", fieldErrors[0].Field)
	assert.NotEmpty(t, fieldErrors[0].Message)
}

// A pattern is required; any non-empty value passes.
func TestProperty_PatternValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("empty patterns are rejected, non-empty accepted", prop.ForAll(
		func(pattern string) bool {
			reqBody, _ := json.Marshal(map[string]string{"pattern": pattern})

			req := httptest.NewRequest("POST", "/api/cache/clear", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var payload patternPayload
			err := DecodeAndValidate(req, &payload)

			if pattern == "" {
				return err != nil
			}
			return err == nil
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Limits outside [1,100] fail the same tags the endpoints use.
func TestProperty_LimitRangeValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("limit outside the page bounds is rejected", prop.ForAll(
		func(limit int) bool {
			reqBody, _ := json.Marshal(map[string]int{"limit": limit})

			req := httptest.NewRequest("POST", "/api/cache/clear", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var payload limitPayload
			err := DecodeAndValidate(req, &payload)

			if limit >= 1 && limit <= 100 {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(-50, 200),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
