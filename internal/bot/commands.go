// Package bot — commands.go описывает все команды бота и их политику допуска.
package bot

import (
	"dukebot.dev/moderation-bot/internal/bot/admission"
	"dukebot.dev/moderation-bot/internal/config"
)

// CommandRegistry хранит политику допуска по каноническому имени команды
// и русские синонимы.
type CommandRegistry struct {
	specs   map[string]admission.CommandSpec
	aliases map[string]string
}

// NewCommandRegistry собирает таблицу команд. Кулдауны берутся из
// конфигурации (CooldownFor).
func NewCommandRegistry(cfg *config.Config) *CommandRegistry {
	groupOnly := []string{"group", "supergroup"}
	anywhere := []string{"group", "supergroup", "private"}

	r := &CommandRegistry{
		specs: make(map[string]admission.CommandSpec),
		aliases: map[string]string{
			"карма":       "karma",
			"+карма":      "give_karma",
			"-карма":      "remove_karma",
			"варн":        "warn",
			"анварн":      "unwarn",
			"преды":       "warnings",
			"мут":         "mute",
			"анмут":       "unmute",
			"правила":     "rules",
			"приветствие": "welcome",
			"статы":       "stats",
			"топ":         "leaderboard",
		},
	}

	add := func(name string, kinds []string, adminOnly bool) {
		r.specs[name] = admission.CommandSpec{
			Name:      name,
			ChatKinds: kinds,
			AdminOnly: adminOnly,
			Cooldown:  cfg.CooldownFor(name),
		}
	}

	add("karma", anywhere, false)
	add("give_karma", groupOnly, true)
	add("remove_karma", groupOnly, true)
	add("warn", groupOnly, true)
	add("unwarn", groupOnly, true)
	add("warnings", anywhere, false)
	add("mute", groupOnly, true)
	add("unmute", groupOnly, true)
	add("rules", groupOnly, false)
	add("set_rules", groupOnly, true)
	add("welcome", groupOnly, true)
	add("set_welcome", groupOnly, true)
	add("stats", anywhere, false)
	add("leaderboard", groupOnly, false)
	add("nukem", groupOnly, false)

	return r
}

// Lookup находит политику команды по имени или синониму.
func (r *CommandRegistry) Lookup(cmd string) (admission.CommandSpec, bool) {
	if canonical, ok := r.aliases[cmd]; ok {
		cmd = canonical
	}
	spec, ok := r.specs[cmd]
	return spec, ok
}

// Specs возвращает политики всех команд (нужно контроллеру допуска).
func (r *CommandRegistry) Specs() []admission.CommandSpec {
	out := make([]admission.CommandSpec, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, spec)
	}
	return out
}
