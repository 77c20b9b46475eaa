package sqlite

import "time"

// SetNow replaces the store's clock.
func SetNow(s *Store, now func() time.Time) {
	s.now = now
}
