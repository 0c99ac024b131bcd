package http

import (
	"encoding/json"
	"errors"
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tesoro/internal/core"
	"tesoro/internal/services"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
		wantErr   bool
	}{
		{name: "defaults", query: "", wantPage: 1, wantLimit: 0},
		{name: "explicit", query: "page=3&limit=20", wantPage: 3, wantLimit: 20},
		{name: "not a number", query: "page=abc", wantErr: true},
		{name: "negative", query: "limit=-1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			p, err := ParsePagination(q)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errBadRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
		})
	}
}

func TestAmountInput(t *testing.T) {
	tests := []struct {
		raw       string
		wantCents int64
		wantErr   bool
	}{
		{raw: `1234`, wantCents: 1234},
		{raw: `"12.34"`, wantCents: 1234},
		{raw: `"12,345"`, wantCents: 1235},
		{raw: `"-1"`, wantErr: true},
		{raw: `"abc"`, wantErr: true},
		{raw: `12.5`, wantErr: true},
		{raw: `"922337203685477.58"`, wantCents: core.MaxAmountCents},
		{raw: `"922337203685477.59"`, wantErr: true},
		{raw: `"92233720368547758.07"`, wantErr: true},
		{raw: `9223372036854775807`, wantCents: math.MaxInt64},
		{raw: `9223372036854775808`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var a amountInput
			err := json.Unmarshal([]byte(tt.raw), &a)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCents, a.Cents)
		})
	}

	var a amountInput
	err := json.Unmarshal([]byte(`"x"`), &a)
	var verr *services.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "amount", verr.Field)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "Dinner", sanitizeInput("  Din\x00ner\x07 "))
	assert.Equal(t, "a\tb\nc", sanitizeInput("a\tb\nc"))
	assert.Nil(t, sanitizePtr(nil))
	assert.Equal(t, "x", *sanitizePtr(&[]string{" x "}[0]))
}
