// Package notify delivers popular-profile notifications. The sweep
// only depends on the Notifier interface; delivery failure is reported
// back per profile and never aborts the caller.
package notify

import (
	"context"
	"log"
)

// PopularProfile carries the fields included in a notification.
type PopularProfile struct {
	Name      string
	Age       int
	Location  string
	LikeCount int
}

// Notifier is an outbound notification channel.
type Notifier interface {
	NotifyPopularProfile(ctx context.Context, p PopularProfile) error
}

// LogNotifier writes notifications to the process log. Used for dry
// runs and as the fallback when no SMTP server is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyPopularProfile(_ context.Context, p PopularProfile) error {
	log.Printf("popular profile: %s (%d, %s) has %d likes", p.Name, p.Age, p.Location, p.LikeCount)
	return nil
}
