package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralizeSeconds(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{1, "секунду"},
		{2, "секунды"},
		{4, "секунды"},
		{5, "секунд"},
		{11, "секунд"},
		{14, "секунд"},
		{21, "секунду"},
		{22, "секунды"},
		{30, "секунд"},
		{101, "секунду"},
		{111, "секунд"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PluralizeSeconds(tc.n), "n=%d", tc.n)
	}
}

func TestPluralizeHours(t *testing.T) {
	assert.Equal(t, "час", PluralizeHours(1))
	assert.Equal(t, "часа", PluralizeHours(2))
	assert.Equal(t, "часов", PluralizeHours(5))
	assert.Equal(t, "часов", PluralizeHours(12))
	assert.Equal(t, "час", PluralizeHours(21))
}

func TestPluralizeWarnings(t *testing.T) {
	assert.Equal(t, "предупреждение", PluralizeWarnings(1))
	assert.Equal(t, "предупреждения", PluralizeWarnings(3))
	assert.Equal(t, "предупреждений", PluralizeWarnings(5))
	assert.Equal(t, "предупреждений", PluralizeWarnings(11))
	assert.Equal(t, "предупреждение", PluralizeWarnings(21))
}

func TestFormatUserName(t *testing.T) {
	assert.Equal(t, "@duke", FormatUserName("duke", "Дюк", "Нюкем"))
	assert.Equal(t, "Дюк Нюкем", FormatUserName("", "Дюк", "Нюкем"))
	assert.Equal(t, "Дюк", FormatUserName("", "Дюк", ""))
}
