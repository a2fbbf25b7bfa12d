package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"10m", 10 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"7D", 7 * 24 * time.Hour},
		{" 5m ", 5 * time.Minute},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		require.NoError(t, err, "in=%q", tc.in)
		assert.Equal(t, tc.want, got, "in=%q", tc.in)
	}
}

func TestParseDurationInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "-5m", "10", "5w", "m", "1.5h"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, "in=%q", in)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 секунд"},
		{time.Second, "1 секунду"},
		{45 * time.Second, "45 секунд"},
		{90 * time.Second, "1 минуту 30 секунд"},
		{10 * time.Minute, "10 минут"},
		{2*time.Hour + 30*time.Minute, "2 часа 30 минут"},
		{24 * time.Hour, "1 день"},
		{30 * time.Hour, "1 день 6 часов"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDuration(tc.in), "in=%v", tc.in)
	}
}

func TestCeilSeconds(t *testing.T) {
	assert.Equal(t, 30*time.Second, CeilSeconds(29300*time.Millisecond))
	assert.Equal(t, 30*time.Second, CeilSeconds(30*time.Second))
	assert.Equal(t, time.Duration(0), CeilSeconds(-time.Second))
}
