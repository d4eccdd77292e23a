// Package notify delivers short announcements (new holidays) to chat and
// push services through shoutrrr.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	appLog "trustcal/internal/log"
	"trustcal/internal/metrics"
)

// Notifier sends a titled message.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Noop discards every message.
type Noop struct{}

func (Noop) Notify(context.Context, string, string) error { return nil }

// Shoutrrr fans a message out to every configured service URL.
type Shoutrrr struct {
	sender  *router.ServiceRouter
	schemes []string
	metrics *metrics.Metrics
}

// NewShoutrrr validates urls and builds a single sender for all of them.
// With no urls it returns nil, nil; use New to get a Noop instead.
func NewShoutrrr(urls []string, timeout time.Duration, m *metrics.Metrics) (*Shoutrrr, error) {
	clean := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	if len(clean) == 0 {
		return nil, nil
	}

	sender, err := shoutrrr.CreateSender(clean...)
	if err != nil {
		// shoutrrr errors can echo the URL, which usually embeds a token.
		return nil, fmt.Errorf("invalid notification url (schemes %s): %w", strings.Join(schemesOf(clean), ","), errors.New(redact(err.Error(), clean)))
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &Shoutrrr{sender: sender, schemes: schemesOf(clean), metrics: m}, nil
}

// New returns a shoutrrr notifier for urls, or Noop when none are set.
func New(urls []string, timeout time.Duration, m *metrics.Metrics) (Notifier, error) {
	s, err := NewShoutrrr(urls, timeout, m)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return Noop{}, nil
	}
	return s, nil
}

// Notify reports the first delivery failure; other services still get the
// message. The router applies its own timeout, so ctx is only checked
// before sending.
func (s *Shoutrrr) Notify(ctx context.Context, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	var first error
	for _, e := range s.sender.Send(message, &params) {
		if e != nil {
			first = e
			break
		}
	}
	s.metrics.Notification(first)
	if first != nil {
		return fmt.Errorf("send notification via %s: %w", strings.Join(s.schemes, ","), first)
	}
	appLog.Debug("notification sent", "services", strings.Join(s.schemes, ","), "title", title)
	return nil
}

func schemesOf(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
			out = append(out, u.Scheme)
		} else {
			out = append(out, "?")
		}
	}
	return out
}

func redact(msg string, urls []string) string {
	for _, u := range urls {
		msg = strings.ReplaceAll(msg, u, "<redacted>")
	}
	return msg
}
