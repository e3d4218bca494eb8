// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Tokens
	}{
		{
			name: "reads token files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "contexts.example.org.token", "  tok_abc123  \n")
				writeFile(t, dir, "_.internal.example.token", "tok_wild")
				return dir
			},
			want: Tokens{
				"contexts.example.org": "tok_abc123",
				"_.internal.example":   "tok_wild",
			},
		},
		{
			name: "returns empty set for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Tokens{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "a.example.token", "valid")
				writeFile(t, dir, "b.example.token", "")
				writeFile(t, dir, "c.example.token", "   \n\t  ")
				return dir
			},
			want: Tokens{"a.example": "valid"},
		},
		{
			name: "skips dotfiles and files without the token suffix",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden.token", "secret")
				writeFile(t, dir, "README", "not a token")
				writeFile(t, dir, "a.example.token", "tok")
				return dir
			},
			want: Tokens{"a.example": "tok"},
		},
		{
			name: "skips subdirectories and lowercases hosts",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "Contexts.Example.ORG.token", "tok")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.token"), 0o755))
				return dir
			},
			want: Tokens{"contexts.example.org": "tok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good.example.token", "value123")

	badPath := filepath.Join(dir, "bad.example.token")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "value123", got["good.example"])
	_, hasBad := got["bad.example"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func TestTokensFor(t *testing.T) {
	tokens := Tokens{
		"contexts.example.org": "exact",
		"_.example.org":        "wide",
		"_.team.example.org":   "narrow",
	}

	tests := []struct {
		host   string
		want   string
		wantOK bool
	}{
		{"contexts.example.org", "exact", true},
		{"CONTEXTS.example.org", "exact", true},
		{"contexts.example.org:8443", "exact", true},
		{"other.example.org", "wide", true},
		{"a.team.example.org", "narrow", true},
		{"example.org", "", false},
		{"w3.org", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, ok := tokens.For(tt.host)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Tokens(nil).For("example.org")
	assert.False(t, ok)
}

func TestTokensHosts(t *testing.T) {
	hosts := Tokens{"b.example": "1", "a.example": "2"}.Hosts()
	sort.Strings(hosts)
	assert.Equal(t, []string{"a.example", "b.example"}, hosts)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
