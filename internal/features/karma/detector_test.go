package karma

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsThankYou(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"спасибо", true},
		{"Спасибо!", true},
		{"СПАСИБО!!!", true},
		{"спс", true},
		{"благодарю", true},
		{"спасибо большое", true},
		{"Огромное спасибо!", true},
		{"спасибо 🙏", true},
		{"спасибо за помощь", false},
		{"большое большое", false},
		{"не за что", false},
		{"спасибо, но нет, это не то", false},
		{"", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, IsThankYou(tc.text), tc.text)
	}
}
