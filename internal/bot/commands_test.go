package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dukebot.dev/moderation-bot/internal/config"
)

func registryConfig() *config.Config {
	return &config.Config{
		DefaultCooldown: 5 * time.Second,
		CommandCooldowns: map[string]time.Duration{
			"nukem": time.Minute,
		},
	}
}

func TestRegistryLookupCanonical(t *testing.T) {
	r := NewCommandRegistry(registryConfig())

	spec, ok := r.Lookup("warn")
	require.True(t, ok)
	assert.Equal(t, "warn", spec.Name)
	assert.True(t, spec.AdminOnly)
	assert.Equal(t, []string{"group", "supergroup"}, spec.ChatKinds)
}

func TestRegistryLookupAliases(t *testing.T) {
	r := NewCommandRegistry(registryConfig())

	cases := map[string]string{
		"карма":  "karma",
		"+карма": "give_karma",
		"-карма": "remove_karma",
		"варн":   "warn",
		"преды":  "warnings",
		"мут":    "mute",
		"топ":    "leaderboard",
	}
	for alias, want := range cases {
		spec, ok := r.Lookup(alias)
		require.True(t, ok, alias)
		assert.Equal(t, want, spec.Name, alias)
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewCommandRegistry(registryConfig())

	_, ok := r.Lookup("ban")
	assert.False(t, ok)
}

func TestRegistryCooldownsFromConfig(t *testing.T) {
	r := NewCommandRegistry(registryConfig())

	nukem, ok := r.Lookup("nukem")
	require.True(t, ok)
	assert.Equal(t, time.Minute, nukem.Cooldown)

	rules, ok := r.Lookup("rules")
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, rules.Cooldown)
}

func TestRegistryOpenCommandsWorkInPrivate(t *testing.T) {
	r := NewCommandRegistry(registryConfig())

	for _, name := range []string{"karma", "warnings", "stats"} {
		spec, ok := r.Lookup(name)
		require.True(t, ok, name)
		assert.False(t, spec.AdminOnly, name)
		assert.Contains(t, spec.ChatKinds, "private", name)
	}
}

func TestRegistrySpecsComplete(t *testing.T) {
	r := NewCommandRegistry(registryConfig())

	specs := r.Specs()
	assert.Len(t, specs, 15)
}
