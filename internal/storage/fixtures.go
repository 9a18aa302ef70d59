package storage

import (
	"github.com/rs/xid"
	"golang.org/x/crypto/bcrypt"
)

// fixturePassword is the password every seeded user signs in with.
const fixturePassword = "password123"

// FixtureUsers seeds the store when no snapshot provides a user
// collection. Ids are allocated at seed time, so the current-user pointer
// always refers to a real allocated id, never a sentinel.
func FixtureUsers() []User {
	hash, err := bcrypt.GenerateFromPassword([]byte(fixturePassword), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt fails only on invalid cost
		panic(err)
	}

	return []User{
		{
			ID:           xid.New().String(),
			Username:     "john_doe",
			FullName:     "John Doe",
			Avatar:       "https://i.pravatar.cc/150?img=12",
			Email:        "john@example.com",
			PasswordHash: hash,
			IsOnline:     true,
		},
		{
			ID:           xid.New().String(),
			Username:     "jane_smith",
			FullName:     "Jane Smith",
			Avatar:       "https://i.pravatar.cc/150?img=45",
			Email:        "jane@example.com",
			PasswordHash: hash,
			IsOnline:     true,
		},
	}
}
