package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func snapshotAt(t *testing.T) *Snapshot {
	return NewSnapshot(filepath.Join(t.TempDir(), "state.json"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := snapshotAt(t)

	s := bootstrap(t, WithSnapshot(snap))
	me := signIn(t, s)
	other := signUp(t, s)

	chat, err := s.CreateChat(ChatSpec{Type: ChatPersonal, Participants: []string{other.ID}})
	require.NoError(t, err)
	_, err = s.CreateStory("", "https://example.com/1.jpg")
	require.NoError(t, err)
	s.SetSidebarCollapsed(true)

	// a second store over the same file resumes the session
	reloaded := bootstrap(t, WithSnapshot(snap))

	current := reloaded.CurrentUser()
	require.NotNil(t, current)
	require.Equal(t, me.ID, current.ID)
	require.True(t, reloaded.SidebarCollapsed())

	got, err := reloaded.ChatByID(chat.ID)
	require.NoError(t, err)
	require.Equal(t, chat.Participants, got.Participants)

	require.Len(t, reloaded.ActiveStories(), 1)
	require.Len(t, reloaded.Users(), len(s.Users()))

	// re-login works because password hashes survive the round trip
	_, err = reloaded.Login(me.Username, "secret")
	require.NoError(t, err)
}

func TestSnapshotMissingFileFallsBackToFixtures(t *testing.T) {
	s := bootstrap(t, WithSnapshot(snapshotAt(t)))

	require.Len(t, s.Users(), len(FixtureUsers()))
	require.Nil(t, s.CurrentUser())
	require.Empty(t, s.Chats())
}

func TestSnapshotCorruptFileFallsBackToFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users": [`), 0644))

	s := bootstrap(t, WithSnapshot(NewSnapshot(path)))

	require.Len(t, s.Users(), len(FixtureUsers()))
	require.Empty(t, s.Chats())
}

func TestSnapshotPartialSubsetKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"isSidebarCollapsed": true}`), 0644))

	s := bootstrap(t, WithSnapshot(NewSnapshot(path)))

	// absent collections fall back to the fixture defaults
	require.True(t, s.SidebarCollapsed())
	require.Len(t, s.Users(), len(FixtureUsers()))
	require.Empty(t, s.Chats())
	require.Empty(t, s.ActiveStories())
}
