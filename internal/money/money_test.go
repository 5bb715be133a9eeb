package money

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
	}{
		{"12", 1200},
		{"12.5", 1250},
		{"12.50", 1250},
		{"12,34", 1234},
		{"0.07", 7},
		{".5", 50},
		{"0", 0},
		{"-20", -2000},
		{"-0.99", -99},
		{"+3.10", 310},
		{"12.345", 1235},
		{"12.344", 1234},
		{"-12.345", -1235},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "-", "abc", "1.2.3", "1e3", "12.x", "--1", "99999999999999999999"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", in)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "12.50", Amount(1250).String())
	assert.Equal(t, "-0.05", Amount(-5).String())
	assert.Equal(t, "0.00", Amount(0).String())
}

func TestJSON(t *testing.T) {
	var body struct {
		Amount *Amount `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":-20.5}`), &body))
	require.NotNil(t, body.Amount)
	assert.Equal(t, Amount(-2050), *body.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount":"7.25"}`), &body))
	assert.Equal(t, Amount(725), *body.Amount)

	out, err := json.Marshal(map[string]Amount{"amount": 1250})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":12.5}`, string(out))

	err = json.Unmarshal([]byte(`{"amount":true}`), &body)
	var typeErr *json.UnmarshalTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "amount", typeErr.Field)
}
