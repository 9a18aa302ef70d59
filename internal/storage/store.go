package storage

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/xid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// storyTTL is the fixed visibility window of a story.
const storyTTL = 24 * time.Hour

var (
	ErrUserExists        = errors.New("user already exists")
	ErrUserNotExist      = errors.New("user does not exist")
	ErrBadCredentials    = errors.New("wrong username or password")
	ErrNotSignedIn       = errors.New("no current user")
	ErrChatNotExist      = errors.New("chat does not exist")
	ErrStoryNotExist     = errors.New("story does not exist")
	ErrEmptyMessage      = errors.New("message content is empty")
	ErrChannelPostDenied = errors.New("only the channel admin may post")
	ErrNotChannel        = errors.New("chat is not a channel")
	ErrBadParticipants   = errors.New("bad participants list")
)

// Store is the single source of truth for identity, chats, stories and
// the transient UI flags. Every mutation runs to completion under one
// mutex and rewrites the attached snapshot before returning, so state
// transitions are atomic and never interleave.
type Store struct {
	logger   *zap.SugaredLogger
	clock    clockwork.Clock
	snapshot *Snapshot

	mu               sync.Mutex
	users            []User
	chats            []Chat
	stories          []Story
	currentUser      *User
	activeChat       string
	mobileMenuOpen   bool
	sidebarCollapsed bool
}

// New returns a Store seeded with fixture users, then overlaid with
// whatever collections a snapshot (if attached via WithSnapshot) holds.
func New(logger *zap.SugaredLogger, opts ...Option) (*Store, error) {
	s := &Store{
		logger: logger,
		clock:  clockwork.NewRealClock(),
		users:  FixtureUsers(),
	}

	for _, opt := range opts {
		opt.apply(s)
	}

	if s.snapshot != nil {
		st, ok, err := s.snapshot.load()
		if err != nil {
			// corrupt snapshot falls back to fixture defaults
			logger.Errorf("loading snapshot: %v", err)
		}
		if ok && err == nil {
			s.overlay(st)
		}
	}

	return s, nil
}

// overlay applies persisted fields over the fixture defaults. Collections
// absent from the snapshot keep their seeded values.
func (s *Store) overlay(st snapshotState) {
	if st.Users != nil {
		s.users = st.Users
	}
	if st.Chats != nil {
		s.chats = st.Chats
	}
	if st.Stories != nil {
		s.stories = st.Stories
	}
	s.currentUser = st.CurrentUser
	s.sidebarCollapsed = st.SidebarCollapsed
}

// persist rewrites the snapshot file. Callers must hold s.mu.
// A failed write is logged and absorbed: the in-memory mutation already
// happened and stays authoritative for the session.
func (s *Store) persist() {
	if s.snapshot == nil {
		return
	}

	err := s.snapshot.save(snapshotState{
		CurrentUser:      s.currentUser,
		Users:            s.users,
		Chats:            s.chats,
		Stories:          s.stories,
		SidebarCollapsed: s.sidebarCollapsed,
	})
	if err != nil {
		s.logger.Errorf("writing snapshot: %v", err)
	}
}

// Close flushes the snapshot one last time.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist()
}

// SetCurrentUser replaces the authenticated identity. It touches no other
// collection.
func (s *Store) SetCurrentUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentUser = user
	s.persist()
}

// RegisterUser appends a new user unless a case-insensitive username or
// email collision exists. Check and append happen under the same lock.
func (s *Store) RegisterUser(spec UserSpec) (User, error) {
	s.logger.Debugf("Registering user (%s)", spec.Username)

	hash, err := bcrypt.GenerateFromPassword([]byte(spec.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(spec.Username)
	email := strings.ToLower(spec.Email)
	for _, u := range s.users {
		if strings.ToLower(u.Username) == username || strings.ToLower(u.Email) == email {
			return User{}, ErrUserExists
		}
	}

	user := User{
		ID:           xid.New().String(),
		Username:     spec.Username,
		FullName:     spec.FullName,
		Avatar:       spec.Avatar,
		Email:        spec.Email,
		PasswordHash: hash,
		IsOnline:     true,
	}
	s.users = append(s.users, user)
	s.persist()

	s.logger.Debugf("Registered user (%s) with id %s", user.Username, user.ID)

	return user, nil
}

// Login matches username case-insensitively, verifies the password and
// makes the matched user current.
func (s *Store) Login(username, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.users {
		if !strings.EqualFold(u.Username, username) {
			continue
		}
		if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
			return User{}, ErrBadCredentials
		}
		user := s.users[i]
		s.currentUser = &user
		s.persist()

		s.logger.Debugf("User (%s) signed in", u.Username)

		return u, nil
	}

	return User{}, ErrBadCredentials
}

// Logout clears the current user, active chat and the mobile menu flag in
// a single update. Users, chats and stories survive for re-login.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentUser = nil
	s.activeChat = ""
	s.mobileMenuOpen = false
	s.persist()
}

// SetActiveChat moves focus to the named chat, dismisses the mobile menu
// and zeroes the chat's unread counter. An empty id clears the focus.
func (s *Store) SetActiveChat(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chatID == "" {
		s.activeChat = ""
		s.mobileMenuOpen = false
		s.persist()
		return nil
	}

	chat := s.findChat(chatID)
	if chat == nil {
		return ErrChatNotExist
	}

	s.activeChat = chatID
	s.mobileMenuOpen = false
	chat.UnreadCount = 0
	s.persist()

	return nil
}

// SendMessage appends a message to the named chat and maintains
// LastMessage and UnreadCount. A message from the current user never
// increments the counter; one from anyone else increments it by exactly
// one unless the chat is currently active. In channels only the admin
// may post. An empty senderID means the current user.
func (s *Store) SendMessage(chatID, senderID, content string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyMessage
	}

	if senderID == "" {
		if s.currentUser == nil {
			return Message{}, ErrNotSignedIn
		}
		senderID = s.currentUser.ID
	}

	chat := s.findChat(chatID)
	if chat == nil {
		return Message{}, ErrChatNotExist
	}

	if chat.Type == ChatChannel && senderID != chat.AdminID {
		return Message{}, ErrChannelPostDenied
	}

	msg := Message{
		ID:        xid.New().String(),
		SenderID:  senderID,
		Content:   content,
		Timestamp: s.clock.Now(),
	}

	chat.Messages = append(chat.Messages, msg)
	chat.LastMessage = &chat.Messages[len(chat.Messages)-1]

	isOwn := s.currentUser != nil && senderID == s.currentUser.ID
	if !isOwn && s.activeChat != chatID {
		chat.UnreadCount++
	}
	s.persist()

	s.logger.Debugf("Message %s appended to chat %s", msg.ID, chatID)

	return msg, nil
}

// MarkChatRead zeroes the chat's unread counter. Idempotent.
func (s *Store) MarkChatRead(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.findChat(chatID)
	if chat == nil {
		return ErrChatNotExist
	}

	chat.UnreadCount = 0
	s.persist()

	return nil
}

// CreateChat allocates a chat with a fresh id, no messages and a zero
// unread counter, prepended so the newest chat lists first.
//
// Participant rules per chat type:
//   - personal: exactly the current user plus one other user
//   - group: the current user is injected if absent and becomes admin
//   - channel: membership starts as the admin alone, whatever the spec
//     supplied; subscribers join later via SubscribeChannel
func (s *Store) CreateChat(spec ChatSpec) (Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentUser == nil {
		return Chat{}, ErrNotSignedIn
	}
	me := s.currentUser.ID

	chat := Chat{
		ID:       xid.New().String(),
		Type:     spec.Type,
		Name:     spec.Name,
		Avatar:   spec.Avatar,
		Messages: []Message{},
	}

	switch spec.Type {
	case ChatPersonal:
		others := excludeID(spec.Participants, me)
		if len(others) != 1 {
			return Chat{}, ErrBadParticipants
		}
		chat.Participants = []string{me, others[0]}
		// a personal chat presents as the other participant
		if other := s.findUser(others[0]); other != nil {
			if chat.Name == "" {
				chat.Name = other.FullName
			}
			if chat.Avatar == "" {
				chat.Avatar = other.Avatar
			}
		}
	case ChatGroup:
		chat.Participants = spec.Participants
		if !containsID(chat.Participants, me) {
			chat.Participants = append(chat.Participants, me)
		}
		chat.AdminID = me
	case ChatChannel:
		admin := spec.AdminID
		if admin == "" {
			admin = me
		}
		chat.AdminID = admin
		chat.Participants = []string{admin}
	default:
		return Chat{}, ErrBadParticipants
	}

	s.chats = append([]Chat{chat}, s.chats...)
	s.persist()

	s.logger.Debugf("Created %s chat (%s) with id %s", chat.Type, chat.Name, chat.ID)

	return chat, nil
}

// CreateStory allocates a story with a fresh id, no views and a fixed
// 24h expiry window, prepended to the story collection. An empty userID
// means the current user.
func (s *Store) CreateStory(userID, imageURL string) (Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == "" {
		if s.currentUser == nil {
			return Story{}, ErrNotSignedIn
		}
		userID = s.currentUser.ID
	}

	now := s.clock.Now()
	story := Story{
		ID:        xid.New().String(),
		UserID:    userID,
		ImageURL:  imageURL,
		Timestamp: now,
		ExpiresAt: now.Add(storyTTL),
		Views:     []string{},
	}

	s.stories = append([]Story{story}, s.stories...)
	s.persist()

	s.logger.Debugf("Created story %s for user %s", story.ID, userID)

	return story, nil
}

// MarkStoryViewed records viewerID in the story's views set. Idempotent.
func (s *Store) MarkStoryViewed(storyID, viewerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.stories {
		if s.stories[i].ID != storyID {
			continue
		}
		if containsID(s.stories[i].Views, viewerID) {
			return nil
		}
		s.stories[i].Views = append(s.stories[i].Views, viewerID)
		s.persist()
		return nil
	}

	return ErrStoryNotExist
}

// SubscribeChannel adds the current user to a channel's participants.
// Idempotent; rejects non-channel chats.
func (s *Store) SubscribeChannel(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, me, err := s.channelAndUser(chatID)
	if err != nil {
		return err
	}

	if containsID(chat.Participants, me) {
		return nil
	}
	chat.Participants = append(chat.Participants, me)
	s.persist()

	return nil
}

// UnsubscribeChannel removes the current user from a channel's
// participants. Idempotent; rejects non-channel chats.
func (s *Store) UnsubscribeChannel(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, me, err := s.channelAndUser(chatID)
	if err != nil {
		return err
	}

	if !containsID(chat.Participants, me) {
		return nil
	}
	chat.Participants = excludeID(chat.Participants, me)
	s.persist()

	return nil
}

// ToggleMobileMenu flips the mobile navigation overlay flag.
func (s *Store) ToggleMobileMenu() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mobileMenuOpen = !s.mobileMenuOpen
	s.persist()
}

// ToggleSidebar flips the persisted sidebar preference.
func (s *Store) ToggleSidebar() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sidebarCollapsed = !s.sidebarCollapsed
	s.persist()
}

// SetSidebarCollapsed sets the persisted sidebar preference.
func (s *Store) SetSidebarCollapsed(collapsed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sidebarCollapsed = collapsed
	s.persist()
}

// findUser returns a pointer into the users slice, or nil.
// Callers must hold s.mu.
func (s *Store) findUser(userID string) *User {
	for i := range s.users {
		if s.users[i].ID == userID {
			return &s.users[i]
		}
	}
	return nil
}

// findChat returns a pointer into the chats slice, or nil.
// Callers must hold s.mu.
func (s *Store) findChat(chatID string) *Chat {
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			return &s.chats[i]
		}
	}
	return nil
}

// channelAndUser resolves the subscribe/unsubscribe preconditions.
// Callers must hold s.mu.
func (s *Store) channelAndUser(chatID string) (*Chat, string, error) {
	if s.currentUser == nil {
		return nil, "", ErrNotSignedIn
	}

	chat := s.findChat(chatID)
	if chat == nil {
		return nil, "", ErrChatNotExist
	}
	if chat.Type != ChatChannel {
		return nil, "", ErrNotChannel
	}

	return chat, s.currentUser.ID, nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func excludeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
