package storage

import (
	"github.com/jonboulle/clockwork"
)

// Option alters the default configuration of the Store during construction
type Option interface {
	apply(*Store)
}

type optionFunc func(s *Store)

func (f optionFunc) apply(s *Store) { f(s) }

// WithClock replaces the wall clock used for message/story timestamps.
// Tests pass a clockwork.FakeClock to pin story expiry boundaries.
func WithClock(clock clockwork.Clock) Option {
	return optionFunc(func(s *Store) {
		s.clock = clock
	})
}

// WithSnapshot attaches a snapshot file. The snapshot is loaded during
// construction and rewritten synchronously after every mutation.
func WithSnapshot(snap *Snapshot) Option {
	return optionFunc(func(s *Store) {
		s.snapshot = snap
	})
}

// WithSeedUsers replaces the default fixture users used when no snapshot
// provides a user collection.
func WithSeedUsers(users []User) Option {
	return optionFunc(func(s *Store) {
		s.users = users
	})
}
