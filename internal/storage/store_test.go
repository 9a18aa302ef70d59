package storage

import (
	mytesting "messenger-demo/internal/testing"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func bootstrap(t *testing.T, opts ...Option) *Store {
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	s, err := New(logger.Sugar(), opts...)
	require.NoError(t, err)

	return s
}

// signUp registers a fresh user without touching the current-user pointer.
func signUp(t *testing.T, s *Store) User {
	user, err := s.RegisterUser(UserSpec{
		Username: mytesting.RandString(),
		FullName: "Test User",
		Email:    mytesting.RandEmail(),
		Password: "secret",
	})
	require.NoError(t, err)

	return user
}

// signIn registers a fresh user and makes it current.
func signIn(t *testing.T, s *Store) User {
	user := signUp(t, s)
	s.SetCurrentUser(&user)

	return user
}

func TestRegisterUser(t *testing.T) {
	s := bootstrap(t)

	before := len(s.Users())
	user := signUp(t, s)
	require.NotEmpty(t, user.ID)
	require.Len(t, s.Users(), before+1)
}

func TestRegisterUserDuplicateUsername(t *testing.T) {
	s := bootstrap(t)

	// same username in a different case must collide
	_, err := s.RegisterUser(UserSpec{
		Username: "JOHN_DOE",
		FullName: "Someone Else",
		Email:    mytesting.RandEmail(),
		Password: "secret",
	})
	require.Equal(t, ErrUserExists, err)

	matches := 0
	for _, u := range s.Users() {
		if strings.EqualFold(u.Username, "john_doe") {
			matches++
		}
	}
	require.Equal(t, 1, matches)
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	s := bootstrap(t)

	_, err := s.RegisterUser(UserSpec{
		Username: mytesting.RandString(),
		FullName: "Someone Else",
		Email:    "John@Example.com",
		Password: "secret",
	})
	require.Equal(t, ErrUserExists, err)
}

func TestLoginAndLogout(t *testing.T) {
	s := bootstrap(t)

	user, err := s.Login("John_Doe", fixturePassword)
	require.NoError(t, err)
	require.Equal(t, "john_doe", user.Username)
	require.NotNil(t, s.CurrentUser())

	users, chats, stories := len(s.Users()), len(s.Chats()), len(s.ActiveStories())

	s.Logout()
	require.Nil(t, s.CurrentUser())
	require.Equal(t, "", s.ActiveChat())
	require.False(t, s.MobileMenuOpen())

	// collections survive for re-login in the same session
	require.Len(t, s.Users(), users)
	require.Len(t, s.Chats(), chats)
	require.Len(t, s.ActiveStories(), stories)
}

func TestLoginWrongPassword(t *testing.T) {
	s := bootstrap(t)

	_, err := s.Login("john_doe", "nope")
	require.Equal(t, ErrBadCredentials, err)

	_, err = s.Login("nobody", fixturePassword)
	require.Equal(t, ErrBadCredentials, err)
}

func TestCreateChatPersonal(t *testing.T) {
	s := bootstrap(t)
	me := signIn(t, s)
	other := signUp(t, s)

	chat, err := s.CreateChat(ChatSpec{Type: ChatPersonal, Participants: []string{other.ID}})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{me.ID, other.ID}, chat.Participants)
	require.Equal(t, other.FullName, chat.Name)
	require.Empty(t, chat.Messages)
	require.Zero(t, chat.UnreadCount)
}

func TestCreateChatPersonalBadParticipants(t *testing.T) {
	s := bootstrap(t)
	signIn(t, s)
	u1, u2 := signUp(t, s), signUp(t, s)

	_, err := s.CreateChat(ChatSpec{Type: ChatPersonal, Participants: []string{u1.ID, u2.ID}})
	require.Equal(t, ErrBadParticipants, err)

	_, err = s.CreateChat(ChatSpec{Type: ChatPersonal})
	require.Equal(t, ErrBadParticipants, err)
}

func TestCreateChatGroupInjectsCreator(t *testing.T) {
	s := bootstrap(t)
	me := signIn(t, s)
	other := signUp(t, s)

	chat, err := s.CreateChat(ChatSpec{Type: ChatGroup, Name: "Weekend Plans", Participants: []string{other.ID}})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{me.ID, other.ID}, chat.Participants)
	require.Equal(t, me.ID, chat.AdminID)
}

func TestCreateChatChannelDiscardsParticipants(t *testing.T) {
	s := bootstrap(t)
	me := signIn(t, s)

	chat, err := s.CreateChat(ChatSpec{
		Type:         ChatChannel,
		Name:         "Tech News",
		Participants: []string{"u2", "u3"},
	})
	require.NoError(t, err)

	// membership accrues only through subscription
	require.Equal(t, []string{me.ID}, chat.Participants)
	require.Equal(t, me.ID, chat.AdminID)
}

func TestCreateChatPrepends(t *testing.T) {
	s := bootstrap(t)
	signIn(t, s)

	first, err := s.CreateChat(ChatSpec{Type: ChatGroup, Name: "First"})
	require.NoError(t, err)
	second, err := s.CreateChat(ChatSpec{Type: ChatGroup, Name: "Second"})
	require.NoError(t, err)

	chats := s.Chats()
	require.Equal(t, second.ID, chats[0].ID)
	require.Equal(t, first.ID, chats[1].ID)
}

func TestCreateChatSignedOut(t *testing.T) {
	s := bootstrap(t)

	_, err := s.CreateChat(ChatSpec{Type: ChatGroup, Name: "Nope"})
	require.Equal(t, ErrNotSignedIn, err)
}

func TestSendMessageMaintainsLastMessage(t *testing.T) {
	s := bootstrap(t)
	signIn(t, s)
	other := signUp(t, s)

	chat, err := s.CreateChat(ChatSpec{Type: ChatPersonal, Participants: []string{other.ID}})
	require.NoError(t, err)

	msg, err := s.SendMessage(chat.ID, "", "Hi There!")
	require.NoError(t, err)

	got, err := s.ChatByID(chat.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessage)
	require.Equal(t, msg, *got.LastMessage)
	require.Equal(t, msg, got.Messages[len(got.Messages)-1])
}

func TestSendMessageUnreadCount(t *testing.T) {
	s := bootstrap(t)
	signIn(t, s)
	other := signUp(t, s)

	chat, err := s.CreateChat(ChatSpec{Type: ChatPersonal, Participants: []string{other.ID}})
	require.NoError(t, err)

	// own message never increments
	_, err = s.SendMessage(chat.ID, "", "mine")
	require.NoError(t, err)
	got, _ := s.ChatByID(chat.ID)
	require.Zero(t, got.UnreadCount)

	// foreign message increments by exactly one
	_, err = s.SendMessage(chat.ID, other.ID, "theirs")
	require.NoError(t, err)
	got, _ = s.ChatByID(chat.ID)
	require.Equal(t, 1, got.UnreadCount)
}

func TestSendMessageActiveChatStaysRead(t *testing.T) {
	s := bootstrap(t)
	signIn(t, s)
	other := signUp(t, s)

	chat, err := s.CreateChat(ChatSpec{Type: ChatPersonal, Participants: []string{other.ID}})
	require.NoError(t, err)
	require.NoError(t, s.SetActiveChat(chat.ID))

	// the focused chat is already being read
	_, err = s.SendMessage(chat.ID, other.ID, "theirs")
	require.NoError(t, err)
	got, _ := s.ChatByID(chat.ID)
	require.Zero(t, got.UnreadCount)
}

func TestSendMessageUnknownChat(t *testing.T) {
	s := bootstrap(t)
	signIn(t, s)

	before := s.Chats()
	_, err := s.SendMessage("no-such-chat", "", "Hi There!")
	require.Equal(t, ErrChatNotExist, err)
	require.Equal(t, before, s.Chats())
}

func TestSendMessageChannelAdminOnly(t *testing.T) {
	s := bootstrap(t)
	admin := signIn(t, s)

	chat, err := s.CreateChat(ChatSpec{Type: ChatChannel, Name: "Tech News"})
	require.NoError(t, err)

	subscriber := signUp(t, s)
	_, err = s.SendMessage(chat.ID, subscriber.ID, "spam")
	require.Equal(t, ErrChannelPostDenied, err)

	_, err = s.SendMessage(chat.ID, admin.ID, "broadcast")
	require.NoError(t, err)
}

func TestSendMessageEmptyContent(t *testing.T) {
	s := bootstrap(t)
	signIn(t, s)
	other := signUp(t, s)

	chat, err := s.CreateChat(ChatSpec{Type: ChatPersonal, Participants: []string{other.ID}})
	require.NoError(t, err)

	_, err = s.SendMessage(chat.ID, "", "   ")
	require.Equal(t, ErrEmptyMessage, err)
}

func TestMarkChatRead(t *testing.T) {
	s := bootstrap(t)
	signIn(t, s)
	other := signUp(t, s)

	chat, err := s.CreateChat(ChatSpec{Type: ChatPersonal, Participants: []string{other.ID}})
	require.NoError(t, err)

	_, err = s.SendMessage(chat.ID, other.ID, "theirs")
	require.NoError(t, err)

	require.NoError(t, s.MarkChatRead(chat.ID))
	got, _ := s.ChatByID(chat.ID)
	require.Zero(t, got.UnreadCount)

	// idempotent on an already read chat
	require.NoError(t, s.MarkChatRead(chat.ID))
	got, _ = s.ChatByID(chat.ID)
	require.Zero(t, got.UnreadCount)
}

func TestMarkChatReadUnknownChat(t *testing.T) {
	s := bootstrap(t)

	require.Equal(t, ErrChatNotExist, s.MarkChatRead("no-such-chat"))
}

func TestSetActiveChat(t *testing.T) {
	s := bootstrap(t)
	signIn(t, s)
	other := signUp(t, s)

	chat, err := s.CreateChat(ChatSpec{Type: ChatPersonal, Participants: []string{other.ID}})
	require.NoError(t, err)
	_, err = s.SendMessage(chat.ID, other.ID, "unread")
	require.NoError(t, err)

	s.ToggleMobileMenu()
	require.True(t, s.MobileMenuOpen())

	// opening a chat dismisses the navigation overlay and reads the chat
	require.NoError(t, s.SetActiveChat(chat.ID))
	require.Equal(t, chat.ID, s.ActiveChat())
	require.False(t, s.MobileMenuOpen())
	got, _ := s.ChatByID(chat.ID)
	require.Zero(t, got.UnreadCount)

	require.NoError(t, s.SetActiveChat(""))
	require.Equal(t, "", s.ActiveChat())
}

func TestSetActiveChatUnknown(t *testing.T) {
	s := bootstrap(t)

	require.Equal(t, ErrChatNotExist, s.SetActiveChat("no-such-chat"))
}

func TestSubscribeUnsubscribeRoundTrip(t *testing.T) {
	s := bootstrap(t)
	signIn(t, s)

	chat, err := s.CreateChat(ChatSpec{Type: ChatChannel, Name: "Tech News"})
	require.NoError(t, err)

	subscriber := signUp(t, s)
	s.SetCurrentUser(&subscriber)

	before, _ := s.ChatByID(chat.ID)

	require.NoError(t, s.SubscribeChannel(chat.ID))
	got, _ := s.ChatByID(chat.ID)
	require.Contains(t, got.Participants, subscriber.ID)

	// subscribing twice is a no-op
	require.NoError(t, s.SubscribeChannel(chat.ID))
	got, _ = s.ChatByID(chat.ID)
	require.Len(t, got.Participants, len(before.Participants)+1)

	// round trip restores the pre-subscribe set
	require.NoError(t, s.UnsubscribeChannel(chat.ID))
	got, _ = s.ChatByID(chat.ID)
	require.Equal(t, before.Participants, got.Participants)

	// unsubscribing again stays a no-op
	require.NoError(t, s.UnsubscribeChannel(chat.ID))
	got, _ = s.ChatByID(chat.ID)
	require.Equal(t, before.Participants, got.Participants)
}

func TestSubscribeNonChannel(t *testing.T) {
	s := bootstrap(t)
	signIn(t, s)

	chat, err := s.CreateChat(ChatSpec{Type: ChatGroup, Name: "Weekend Plans"})
	require.NoError(t, err)

	require.Equal(t, ErrNotChannel, s.SubscribeChannel(chat.ID))
	require.Equal(t, ErrNotChannel, s.UnsubscribeChannel(chat.ID))
}

func TestCreateStoryPrepends(t *testing.T) {
	s := bootstrap(t)
	me := signIn(t, s)

	first, err := s.CreateStory("", "https://example.com/1.jpg")
	require.NoError(t, err)
	second, err := s.CreateStory("", "https://example.com/2.jpg")
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, me.ID, first.UserID)

	stories := s.ActiveStories()
	require.Equal(t, second.ID, stories[0].ID)
	require.Equal(t, first.ID, stories[1].ID)
}

func TestStoryExpiryBoundary(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)

	s := bootstrap(t, WithClock(clock))
	signIn(t, s)

	story, err := s.CreateStory("", "https://example.com/1.jpg")
	require.NoError(t, err)
	require.Equal(t, start.Add(24*time.Hour), story.ExpiresAt)

	// one tick before expiry the story is still active
	clock.Advance(24*time.Hour - time.Millisecond)
	require.Len(t, s.ActiveStories(), 1)

	// at and past expiry it disappears from every view
	clock.Advance(time.Millisecond)
	require.Empty(t, s.ActiveStories())

	clock.Advance(time.Millisecond)
	require.Empty(t, s.ActiveStories())
}

func TestMarkStoryViewedIdempotent(t *testing.T) {
	s := bootstrap(t)
	signIn(t, s)
	viewer := signUp(t, s)

	story, err := s.CreateStory("", "https://example.com/1.jpg")
	require.NoError(t, err)

	require.NoError(t, s.MarkStoryViewed(story.ID, viewer.ID))
	require.NoError(t, s.MarkStoryViewed(story.ID, viewer.ID))

	stories := s.ActiveStories()
	require.Equal(t, []string{viewer.ID}, stories[0].Views)
}

func TestMarkStoryViewedUnknownStory(t *testing.T) {
	s := bootstrap(t)

	require.Equal(t, ErrStoryNotExist, s.MarkStoryViewed("no-such-story", "viewer"))
}

func TestSidebarFlags(t *testing.T) {
	s := bootstrap(t)

	require.False(t, s.SidebarCollapsed())
	s.ToggleSidebar()
	require.True(t, s.SidebarCollapsed())
	s.SetSidebarCollapsed(false)
	require.False(t, s.SidebarCollapsed())
}
