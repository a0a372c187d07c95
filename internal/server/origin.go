// Package server exposes the HTTP surface of Parlor: the room and account
// REST API and the per-room WebSocket upgrade endpoint.
package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// originPolicy validates the Origin header of WebSocket upgrade requests
// against the configured allow-list.
type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	log      *slog.Logger
}

func newOriginPolicy(origins []string, log *slog.Logger) *originPolicy {
	policy := &originPolicy{
		allowed: make(map[string]struct{}, len(origins)),
		log:     log,
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			policy.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		policy.allowed[normalized] = struct{}{}
	}
	return policy
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func (p *originPolicy) check(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		// Non-browser clients send no Origin; let them through.
		return true
	}

	normalized, ok := normalizeOrigin(originHeader)
	if !ok {
		p.log.Warn("blocked request with malformed origin", "origin", originHeader)
		return false
	}

	if p.allowAll {
		return true
	}
	if _, exists := p.allowed[normalized]; exists {
		return true
	}

	p.log.Warn("blocked request from disallowed origin", "origin", originHeader)
	return false
}
