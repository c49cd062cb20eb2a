package i18n

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_T(t *testing.T) {
	c := MustNew()

	assert.Equal(t, "Create an account", c.T("en", "auth.signUp.title"))
	assert.Equal(t, "Créer un compte", c.T("fr", "auth.signUp.title"))
	assert.Equal(t, "Create an account", c.T("de", "auth.signUp.title"), "unknown language falls back to English")
	assert.Equal(t, "no.such.key", c.T("fr", "no.such.key"))
}

func TestCatalog_Interpolation(t *testing.T) {
	c := MustNew()

	assert.Equal(t, "3 unread", c.T("en", "mySubmissions.unreadCount", "count", 3))
	assert.Equal(t, "Showing 12 of 40", c.T("en", "projects.showing", "count", 12, "total", 40))
	assert.Equal(t, "{{count}} unread", c.T("en", "mySubmissions.unreadCount"))
}

func TestCatalogs_HaveSameKeys(t *testing.T) {
	c := MustNew()
	for key := range c.msgs["en"] {
		assert.True(t, c.Has("fr", key), "fr missing %s", key)
	}
	for key := range c.msgs["fr"] {
		assert.True(t, c.Has("en", key), "en missing %s", key)
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"en":    "en",
		"fr-CA": "fr",
		"FR_fr": "fr",
		" en ":  "en",
		"de":    "",
		"":      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestFlagEmoji(t *testing.T) {
	assert.Equal(t, "🇬🇧", FlagEmoji("GB"))
	assert.Equal(t, "🇫🇷", FlagEmoji("fr"))
	assert.Equal(t, "", FlagEmoji("GBR"))
	assert.Equal(t, "", FlagEmoji("1A"))
}

func TestIsKey(t *testing.T) {
	assert.True(t, IsKey("auth.signUp.passwordTooShort", "auth.", "account."))
	assert.True(t, IsKey("account.deleteError", "auth.", "account."))
	assert.False(t, IsKey("Email already registered", "auth."))
	assert.False(t, IsKey("auth. is broken", "auth."))
}

func TestCatalog_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fr.yaml"), []byte("brand:\n  tagline: Surchargé\n"), 0o644))

	c := MustNew()
	require.NoError(t, c.LoadDir(dir))
	assert.Equal(t, "Surchargé", c.T("fr", "brand.tagline"))
	assert.Equal(t, "ToolMe", c.T("fr", "brand.name"))
}

func TestCatalog_LoadDirInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.yaml"), []byte("brand: [unclosed"), 0o644))

	assert.Error(t, MustNew().LoadDir(dir))
}

func TestCatalog_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "en.yaml")
	require.NoError(t, os.WriteFile(path, []byte("brand:\n  name: First\n"), 0o644))

	c := MustNew()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx, dir, zerolog.Nop()) }()

	require.Eventually(t, func() bool { return c.T("en", "brand.name") == "First" }, 2*time.Second, 10*time.Millisecond)

	// The watcher may attach after the first load; keep writing until seen.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("brand:\n  name: Second\n"), 0o644)
		return c.T("en", "brand.name") == "Second"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
