package bot

import (
	"strings"
	"unicode"
)

// CommandParser парсит команды с префиксами !, . и /.
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// Parse разбирает текст сообщения на команду, аргументы и сырой хвост.
// Хвост сохраняет переносы строк — он нужен командам с многострочным
// текстом. Команда вида !warn@имя_бота принимается только если имя
// совпадает с собственным, иначе сообщение адресовано другому боту.
func (p *CommandParser) Parse(text, botName string) (string, []string, string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return "", nil, "", false
	}

	text = strings.TrimSpace(text)

	var token, rest string
	if idx := strings.IndexFunc(text, unicode.IsSpace); idx >= 0 {
		token = text[:idx]
		rest = strings.TrimSpace(text[idx:])
	} else {
		token = text
	}
	if token == "" {
		return "", nil, "", false
	}

	command := strings.ToLower(token)
	if cmd, mention, found := strings.Cut(command, "@"); found {
		if !strings.EqualFold(mention, botName) {
			return "", nil, "", false
		}
		command = cmd
	}
	if command == "" {
		return "", nil, "", false
	}

	return command, strings.Fields(rest), rest, true
}
