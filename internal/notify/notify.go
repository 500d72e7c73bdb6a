package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Notifier delivers a finished report somewhere people read it.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi sends to every notifier and reports all failures together.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// FromURLs builds a Multi with one Webhook per non-empty URL, or nil when
// there is nothing to send to.
func FromURLs(urls []string) Notifier {
	var m Multi
	for _, u := range urls {
		if wh := NewWebhook(u); wh != nil {
			m = append(m, wh)
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
