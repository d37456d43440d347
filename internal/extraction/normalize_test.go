package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "european grouping", input: "1.234,56", want: "1234.56"},
		{name: "anglo grouping", input: "1,234.56", want: "1234.56"},
		{name: "bare comma decimal", input: "45,99", want: "45.99"},
		{name: "plain dot decimal", input: "45.99", want: "45.99"},
		{name: "integer", input: "120", want: "120"},
		{name: "currency symbol", input: "45,99 €", want: "45.99"},
		{name: "dollar prefix", input: "$1,234.56", want: "1234.56"},
		{name: "surrounding whitespace", input: "  12,50  ", want: "12.5"},
		{name: "large european", input: "12.345.678,90", want: "12345678.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAmount(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNormalizeAmountUnparseable(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "€", "12,34,56.7.8"} {
		assert.Nil(t, NormalizeAmount(input), "input %q", input)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024-02-01", "2024-02-01"},
		{"01/02/2024", "2024-02-01"},
		{"01-02-2024", "2024-02-01"},
		{"01.02.2024", "2024-02-01"},
		{"01/02/24", "2024-02-01"},
		{"expires on 2024-02-01 at noon", "2024-02-01"},
		{"vence 01/02/2024", "2024-02-01"},
		{"", ""},
		{"no date here", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDate(tt.input), "input %q", tt.input)
	}
}

func TestNormalizeDateIdempotent(t *testing.T) {
	inputs := []string{"2024-02-01", "01/02/2024", "15.03.2023"}
	for _, in := range inputs {
		once := NormalizeDate(in)
		require.NotEmpty(t, once)
		assert.Equal(t, once, NormalizeDate(once))
	}
}

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{" 1234 ABC ", "1234ABC"},
		{"1234abc", "1234ABC"},
		{"1234 BcD", "1234BCD"},
		{"12345", ""},
		{"", ""},
		{"1234-ABC", ""},
		{"AB 12", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePlate(tt.input), "input %q", tt.input)
	}
}
