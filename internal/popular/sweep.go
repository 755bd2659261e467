// Package popular implements the scheduled popularity sweep: find
// people whose incoming like count crossed the threshold, notify the
// admin once per person, and remember that it happened.
package popular

import (
	"context"
	"errors"
	"time"

	"github.com/amaralkaff/tinder-clone/internal/notify"
	"github.com/amaralkaff/tinder-clone/internal/store"
)

// ErrSweepInProgress is returned when another sweep currently holds
// the lock; the caller skips this trigger instead of queueing it.
var ErrSweepInProgress = errors.New("sweep already in progress")

// DefaultThreshold is the like count at which a profile counts as
// popular.
const DefaultThreshold = 50

// Outcome is the per-profile result of one sweep.
type Outcome struct {
	PersonID  int    `json:"person_id"`
	Name      string `json:"name"`
	LikeCount int    `json:"like_count"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
}

// Summary aggregates a whole sweep.
type Summary struct {
	Found    int       `json:"found"`
	Sent     int       `json:"sent"`
	Failed   int       `json:"failed"`
	Outcomes []Outcome `json:"outcomes"`
}

// Sweeper runs popularity sweeps against a store and a notifier.
type Sweeper struct {
	store    store.Store
	notifier notify.Notifier
	// notifyTimeout bounds one notification delivery.
	notifyTimeout time.Duration
}

func NewSweeper(st store.Store, n notify.Notifier, notifyTimeout time.Duration) *Sweeper {
	if notifyTimeout <= 0 {
		notifyTimeout = 30 * time.Second
	}
	return &Sweeper{store: st, notifier: n, notifyTimeout: notifyTimeout}
}

// Sweep processes every not-yet-notified person whose incoming like
// count is at least threshold. Candidates are handled one at a time
// and independently: a delivery failure is recorded in the summary,
// the sent flag stays false so the person is reconsidered on the next
// scheduled run, and the sweep moves on. The flag is sticky once set,
// so a person is notified at most once in their lifetime.
func (s *Sweeper) Sweep(ctx context.Context, threshold int) (Summary, error) {
	release, acquired, err := s.store.TrySweepLock(ctx)
	if err != nil {
		return Summary{}, err
	}
	if !acquired {
		return Summary{}, ErrSweepInProgress
	}
	defer release()

	candidates, err := s.store.PopularCandidates(ctx, threshold)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Found: len(candidates), Outcomes: []Outcome{}}
	for _, c := range candidates {
		outcome := Outcome{PersonID: c.Person.ID, Name: c.Person.Name, LikeCount: c.LikeCount}
		if err := s.notifyOne(ctx, c); err != nil {
			outcome.Error = err.Error()
			summary.Failed++
		} else {
			outcome.Sent = true
			summary.Sent++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}
	return summary, nil
}

func (s *Sweeper) notifyOne(ctx context.Context, c store.PopularCandidate) error {
	notifyCtx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	err := s.notifier.NotifyPopularProfile(notifyCtx, notify.PopularProfile{
		Name:      c.Person.Name,
		Age:       c.Person.Age,
		Location:  c.Person.Location,
		LikeCount: c.LikeCount,
	})
	if err != nil {
		return err
	}
	return s.store.MarkNotified(ctx, c.Person.ID, time.Now())
}
