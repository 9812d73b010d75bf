package jobs

import (
	"context"
	"log"
	"time"
)

// Warmer keeps a primary-source session ready.
type Warmer interface {
	Warm(ctx context.Context) error
}

// SessionWarmer periodically makes sure one primary-source account holds a
// live session, so the first classification after idle time does not pay for
// a login.
type SessionWarmer struct {
	warmer   Warmer
	interval time.Duration
	timeout  time.Duration
}

// NewSessionWarmer creates a new session warmer.
func NewSessionWarmer(w Warmer, interval time.Duration) *SessionWarmer {
	return &SessionWarmer{warmer: w, interval: interval, timeout: time.Minute}
}

// Start begins the background warm-up loop. It returns when ctx is done.
func (s *SessionWarmer) Start(ctx context.Context) {
	log.Printf("Session warmer started (interval: %v)", s.interval)

	// Run immediately on start
	s.warm(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Session warmer stopped")
			return
		case <-ticker.C:
			s.warm(ctx)
		}
	}
}

func (s *SessionWarmer) warm(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.warmer.Warm(ctx); err != nil {
		log.Printf("Session warmer: %v", err)
	}
}
