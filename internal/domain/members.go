package domain

import (
	"fmt"
	"strings"
)

// ServerOf returns the server part of a Matrix user ID ("@alice:example.org"
// yields "example.org"). The server may carry a port, so only the first colon
// separates it from the localpart.
func ServerOf(userID string) (Host, error) {
	if !strings.HasPrefix(userID, "@") {
		return "", fmt.Errorf("user id %q: missing @ sigil", userID)
	}
	local, server, ok := strings.Cut(userID[1:], ":")
	if !ok {
		return "", fmt.Errorf("user id %q: missing :server suffix", userID)
	}
	if local == "" {
		return "", fmt.Errorf("user id %q: empty localpart", userID)
	}
	if server == "" {
		return "", fmt.Errorf("user id %q: empty server name", userID)
	}
	return Host(server), nil
}

// GroupMembers buckets room members by homeserver. IDs that do not parse are
// skipped and returned separately so callers can log them.
func GroupMembers(userIDs []string) (HostGroup, []string) {
	group := make(HostGroup)
	var invalid []string
	for _, raw := range userIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		server, err := ServerOf(id)
		if err != nil {
			invalid = append(invalid, id)
			continue
		}
		group[server] = append(group[server], id)
	}
	return group, invalid
}
