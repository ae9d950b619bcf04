// Package sessions builds the keys that identify one conversation.
package sessions

import (
	"strings"

	"github.com/nightwatch-astro/nightwatch/internal/config"
)

// Peer kinds. The console client always talks directly.
const (
	PeerDirect = "direct"
)

// BuildSessionKey composes agent:channel:peer:id. Every segment is
// lowercased; empty segments get stable placeholders so keys always have
// four parts.
func BuildSessionKey(agent, channel, peer, id string) string {
	agent = config.NormalizeAgentID(agent)
	if channel == "" {
		channel = "cli"
	}
	if peer == "" {
		peer = PeerDirect
	}
	if id == "" {
		id = "local"
	}
	parts := []string{agent, channel, peer, id}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, ":")
}

// Agent returns the agent segment of a session key, or "" when the key is
// not well formed.
func Agent(key string) string {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}
