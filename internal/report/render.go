package report

import (
	"strings"

	"github.com/hamed0406/shameotron/internal/domain"
)

const Heading = "#### Homeserver versions"

// Renderer turns host statuses into the markdown report posted to the room.
// Each host links back to its federation tester page.
type Renderer struct {
	Template string
}

func (r Renderer) Render(statuses []domain.HostStatus) string {
	var b strings.Builder
	b.WriteString(Heading)
	for _, s := range statuses {
		b.WriteString("\n* ")
		b.WriteString(string(s.Host))
		b.WriteString(": [")
		b.WriteString(s.Version.Text())
		if s.Warning != "" {
			b.WriteByte(' ')
			b.WriteString(s.Warning)
		}
		b.WriteString("](")
		b.WriteString(domain.TesterURL(r.Template, s.Host))
		b.WriteByte(')')
	}
	return b.String()
}
