package metrics

import "time"

// SetNow replaces the sink's clock.
func SetNow(s *Sink, now func() time.Time) {
	s.now = now
}
