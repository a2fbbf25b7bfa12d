// Package karma — detector.go определяет, является ли сообщение благодарностью.
package karma

import "strings"

// Формы благодарности, за которые начисляется карма.
var thankWords = map[string]struct{}{
	"спасибо":   {},
	"спс":       {},
	"благодарю": {},
	"спасибки":  {},
}

// Усилители: «спасибо большое», «огромное спасибо».
var thankAmplifiers = map[string]struct{}{
	"большое":  {},
	"огромное": {},
}

// IsThankYou проверяет, является ли текст благодарностью в чистом виде.
// Регистр не важен, пунктуация в конце допускается. Длинные сообщения
// со «спасибо» внутри не считаются — карма начисляется только за
// явную благодарность.
func IsThankYou(text string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	cleaned = strings.TrimRight(cleaned, "!.,;:)🙏")
	words := strings.Fields(cleaned)

	switch len(words) {
	case 1:
		_, ok := thankWords[words[0]]
		return ok
	case 2:
		if _, ok := thankWords[words[0]]; ok {
			_, amp := thankAmplifiers[words[1]]
			return amp
		}
		if _, ok := thankWords[words[1]]; ok {
			_, amp := thankAmplifiers[words[0]]
			return amp
		}
	}
	return false
}
