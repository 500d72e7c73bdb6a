package resolve

import (
	"sort"
	"strings"

	"github.com/hamed0406/shameotron/internal/domain"
)

// Hosts returns the hosts to probe. An explicit candidate wins outright and
// is not filtered; otherwise the group's hosts minus deadServers, sorted.
func Hosts(candidate string, group domain.HostGroup, deadServers []string) []domain.Host {
	if c := strings.TrimSpace(candidate); c != "" {
		return []domain.Host{domain.Host(c)}
	}

	dead := make(map[domain.Host]struct{}, len(deadServers))
	for _, d := range deadServers {
		dead[domain.Host(d)] = struct{}{}
	}

	out := make([]domain.Host, 0, len(group))
	for h := range group {
		if _, skip := dead[h]; skip {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
