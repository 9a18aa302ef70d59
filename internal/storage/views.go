package storage

import "strings"

// Derived views re-filter the collections on every read. Collections are
// demo-scale, so there is no caching or indexing here on purpose.

// CurrentUser returns the authenticated identity, or nil.
func (s *Store) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentUser == nil {
		return nil
	}
	u := *s.currentUser
	return &u
}

// ActiveChat returns the id of the focused chat, or "".
func (s *Store) ActiveChat() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeChat
}

// MobileMenuOpen reports the mobile navigation overlay flag.
func (s *Store) MobileMenuOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mobileMenuOpen
}

// SidebarCollapsed reports the persisted sidebar preference.
func (s *Store) SidebarCollapsed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sidebarCollapsed
}

// Users returns a copy of the user collection.
func (s *Store) Users() []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]User(nil), s.users...)
}

// Chats returns a copy of the chat collection, newest first.
func (s *Store) Chats() []Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Chat(nil), s.chats...)
}

// ChatByID returns the named chat.
func (s *Store) ChatByID(chatID string) (Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.findChat(chatID)
	if chat == nil {
		return Chat{}, ErrChatNotExist
	}
	return *chat, nil
}

// ChatsByType returns chats of one type, e.g. the channel or group feed.
func (s *Store) ChatsByType(t ChatType) []Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Chat
	for _, c := range s.chats {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// SearchChats matches query against chat names and message contents,
// case-insensitively.
func (s *Store) SearchChats(query string) []Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(query)
	var out []Chat
	for _, c := range s.chats {
		if strings.Contains(strings.ToLower(c.Name), q) || anyMessageContains(c.Messages, q) {
			out = append(out, c)
		}
	}
	return out
}

// SearchUsers matches query against full names and usernames,
// case-insensitively.
func (s *Store) SearchUsers(query string) []User {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(query)
	var out []User
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.FullName), q) || strings.Contains(strings.ToLower(u.Username), q) {
			out = append(out, u)
		}
	}
	return out
}

// ActiveStories returns stories whose expiry lies strictly in the future,
// newest first. Expired stories stay in the collection but never appear
// in any view again.
func (s *Store) ActiveStories() []Story {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var out []Story
	for _, st := range s.stories {
		if now.Before(st.ExpiresAt) {
			out = append(out, st)
		}
	}
	return out
}

// StoriesByOwner splits the active stories into the owner's own rail and
// everyone else's.
func (s *Store) StoriesByOwner(userID string) (mine, others []Story) {
	for _, st := range s.ActiveStories() {
		if st.UserID == userID {
			mine = append(mine, st)
		} else {
			others = append(others, st)
		}
	}
	return mine, others
}

func anyMessageContains(msgs []Message, q string) bool {
	for _, m := range msgs {
		if strings.Contains(strings.ToLower(m.Content), q) {
			return true
		}
	}
	return false
}
