package cli

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"0":           "0.00",
		"12.5":        "12.50",
		"1000":        "1,000.00",
		"1234567.891": "1,234,567.89",
		"-2500.4":     "-2,500.40",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatAmount(decimal.RequireFromString(in)), in)
	}
	assert.Equal(t, "12,000", formatCount(12000))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}
