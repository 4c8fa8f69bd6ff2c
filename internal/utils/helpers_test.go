package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw     json.Number
		want    int
		wantErr bool
	}{
		{"10", 10, false},
		{"10.0", 10, false},
		{"1e2", 100, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"2.5", 0, true},
		{"ten", 0, true},
		{"2147483647", 2147483647, false},
		{"2147483648", 0, true},
		{"1e12", 0, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.raw), func(t *testing.T) {
			got, err := ParseQuantity(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOptionalInt(t *testing.T) {
	v, err := ParseOptionalInt("", "noOfLogos")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseOptionalInt("3", "noOfLogos")
	require.NoError(t, err)
	assert.Equal(t, 3, *v)

	_, err = ParseOptionalInt("-1", "noOfLogos")
	assert.EqualError(t, err, "noOfLogos must be a non-negative whole number")

	_, err = ParseOptionalInt("4294967296", "noOfLogos")
	assert.EqualError(t, err, "noOfLogos must be a non-negative whole number")
}

func TestParsePrice(t *testing.T) {
	price, err := ParsePrice("12.50", "pricePerUnit")
	require.NoError(t, err)
	assert.Equal(t, "12.5", price.String())

	_, err = ParsePrice("0", "pricePerUnit")
	assert.EqualError(t, err, "pricePerUnit must be a positive number")

	_, err = ParsePrice("abc", "pricePerUnit")
	assert.EqualError(t, err, "pricePerUnit must be a number")
}

func TestParsePrice_Precision(t *testing.T) {
	tests := []struct {
		raw     json.Number
		want    string
		wantErr string
	}{
		{raw: "10.01", want: "10.01"},
		{raw: "10.000", want: "10"},
		{raw: "999999999999.99", want: "999999999999.99"},
		{raw: "10.005", wantErr: "pricePerUnit must have at most 2 decimal places"},
		{raw: "0.001", wantErr: "pricePerUnit must have at most 2 decimal places"},
		{raw: "1000000000000", wantErr: "pricePerUnit must be less than 1000000000000"},
	}
	for _, tt := range tests {
		t.Run(string(tt.raw), func(t *testing.T) {
			price, err := ParsePrice(tt.raw, "pricePerUnit")
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, price.String())
		})
	}
}

func TestParseDeadline(t *testing.T) {
	want := time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2030-01-15", "2030-01-15T00:00:00", "2030-01-15T03:00:00+03:00", " 2030-01-15 "} {
		got, err := ParseDeadline(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
	}

	_, err := ParseDeadline("15/01/2030")
	assert.Error(t, err)
}

func TestFirstNonEmpty(t *testing.T) {
	empty, a, b := "", "a", "b"
	assert.Nil(t, FirstNonEmpty())
	assert.Nil(t, FirstNonEmpty(nil, &empty))
	assert.Equal(t, &a, FirstNonEmpty(nil, &empty, &a, &b))
}

func TestSendErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	SendErrorResponse(w, http.StatusNotFound, "order not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"order not found"}`, w.Body.String())
}
