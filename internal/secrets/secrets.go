// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads bearer tokens for context hosts that require
// authentication. Each file named <host>.token in the secrets directory holds
// the token for that host; a file named _.<domain>.token covers every
// subdomain of <domain>.
//
// Example: .secrets/contexts.example.org.token, .secrets/_.internal.example.token.
package secrets

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
)

const tokenSuffix = ".token"

// Tokens maps a host pattern to its bearer token.
type Tokens map[string]string

// Load reads every <host>.token file in dir. A missing directory is not an
// error; Load returns an empty set. Unreadable files are logged and skipped.
func Load(dir string) (Tokens, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Tokens{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	tokens := make(Tokens)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, tokenSuffix) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read token", "file", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			tokens[strings.ToLower(strings.TrimSuffix(name, tokenSuffix))] = value
		}
	}

	return tokens, nil
}

// For returns the token for host (a URL host, optionally with a port). An
// exact match wins over a wildcard; the closest wildcard wins over a wider one.
func (t Tokens) For(host string) (string, bool) {
	if len(t) == 0 || host == "" {
		return "", false
	}
	host = strings.ToLower(host)
	if v, ok := t[host]; ok {
		return v, true
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
		if v, ok := t[host]; ok {
			return v, true
		}
	}
	for domain := host; ; {
		i := strings.Index(domain, ".")
		if i < 0 {
			return "", false
		}
		domain = domain[i+1:]
		if v, ok := t["_."+domain]; ok {
			return v, true
		}
	}
}

// Hosts returns the configured host patterns, for logging. Token values are
// never exposed.
func (t Tokens) Hosts() []string {
	hosts := make([]string, 0, len(t))
	for h := range t {
		hosts = append(hosts, h)
	}
	return hosts
}
