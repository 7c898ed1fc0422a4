package collab

import (
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestPresenceJoinLeave(t *testing.T) {
	presence := NewPresenceRegistryWithDefaults("local")

	presence.Update(&UserJoinedMessage{
		Type:      MessageTypeUserJoined,
		UserId:    "u1",
		UserName:  "One",
		UserEmail: "one@example.com",
	})
	presence.Update(&UserJoinedMessage{
		Type:     MessageTypeUserJoined,
		UserId:   "u2",
		UserName: "Two",
	})

	users := presence.Users()
	assert.Equal(t, 2, len(users))
	assert.Equal(t, "u1", users[0].UserId)
	assert.Equal(t, "u2", users[1].UserId)
	assert.Equal(t, "One", users[0].UserName)

	presence.Update(&UserLeftMessage{
		Type:   MessageTypeUserLeft,
		UserId: "u1",
	})
	users = presence.Users()
	assert.Equal(t, 1, len(users))
	assert.Equal(t, "u2", users[0].UserId)

	presence.Update(&UserLeftMessage{
		Type:   MessageTypeUserLeft,
		UserId: "u2",
	})
	assert.Equal(t, 0, len(presence.Users()))
}

func TestPresenceSnapshotReplace(t *testing.T) {
	presence := NewPresenceRegistryWithDefaults("local")

	presence.Update(&UserJoinedMessage{
		Type:   MessageTypeUserJoined,
		UserId: "u1",
	})
	presence.Update(&UserJoinedMessage{
		Type:   MessageTypeUserJoined,
		UserId: "u3",
	})

	// the snapshot wholesale replaces accumulated state
	presence.Update(&ActiveUsersMessage{
		Type: MessageTypeActiveUsers,
		Users: []*PresenceEntry{
			{UserId: "u1", UserName: "One", FilePath: "/a.ts"},
			{UserId: "u2", UserName: "Two"},
			{UserId: "local", UserName: "Me"},
			{UserId: ""},
		},
	})

	users := presence.Users()
	assert.Equal(t, 2, len(users))
	assert.Equal(t, "u1", users[0].UserId)
	assert.Equal(t, "/a.ts", users[0].FilePath)
	assert.Equal(t, "u2", users[1].UserId)
}

func TestPresenceCursorMoved(t *testing.T) {
	presence := NewPresenceRegistryWithDefaults("local")

	// a cursor event for an untracked user creates the entry
	presence.Update(&CursorMovedMessage{
		Type:     MessageTypeCursorMoved,
		UserId:   "u1",
		UserName: "One",
		FilePath: "/a.ts",
		Cursor: &Cursor{
			Line:   4,
			Column: 8,
		},
	})

	users := presence.Users()
	assert.Equal(t, 1, len(users))
	assert.Equal(t, "/a.ts", users[0].FilePath)
	assert.NotEqual(t, nil, users[0].Cursor)
	assert.Equal(t, 4, users[0].Cursor.Line)

	// a later cursor event overwrites the location
	presence.Update(&CursorMovedMessage{
		Type:     MessageTypeCursorMoved,
		UserId:   "u1",
		FilePath: "/b.ts",
		Cursor: &Cursor{
			Line:   1,
			Column: 1,
		},
	})
	users = presence.Users()
	assert.Equal(t, "/b.ts", users[0].FilePath)
	assert.Equal(t, 1, users[0].Cursor.Line)
}

func TestPresenceLastSeenTouch(t *testing.T) {
	presence := NewPresenceRegistryWithDefaults("local")

	joined := time.Now().Add(-time.Hour)
	presence.Update(&UserJoinedMessage{
		Type:      MessageTypeUserJoined,
		UserId:    "u1",
		UserName:  "One",
		Timestamp: joined,
	})
	presence.Update(&CursorMovedMessage{
		Type:      MessageTypeCursorMoved,
		UserId:    "u1",
		FilePath:  "/a.ts",
		Cursor:    &Cursor{Line: 4, Column: 8},
		Timestamp: joined,
	})

	// content_changed only advances the tracked user's last-seen timestamp
	presence.Update(&ContentChangedMessage{
		Type:     MessageTypeContentChanged,
		UserId:   "u1",
		FilePath: "/a.ts",
		Content:  "remote edit",
	})
	users := presence.Users()
	assert.Equal(t, 1, len(users))
	assert.Equal(t, true, joined.Before(users[0].LastSeen))
	assert.Equal(t, "One", users[0].UserName)
	assert.Equal(t, "/a.ts", users[0].FilePath)
	assert.Equal(t, 4, users[0].Cursor.Line)

	// same for file_modified, with the event's own timestamp
	modified := time.Now().Add(-time.Minute)
	presence.Update(&FileModifiedMessage{
		Type:      MessageTypeFileModified,
		UserId:    "u1",
		FilePath:  "/b.ts",
		Timestamp: modified,
	})
	users = presence.Users()
	assert.Equal(t, 1, len(users))
	assert.Equal(t, modified, users[0].LastSeen)
	assert.Equal(t, "/a.ts", users[0].FilePath)

	// neither creates an entry for an untracked user
	presence.Update(&ContentChangedMessage{
		Type:   MessageTypeContentChanged,
		UserId: "u2",
	})
	presence.Update(&FileModifiedMessage{
		Type:   MessageTypeFileModified,
		UserId: "u2",
	})
	assert.Equal(t, 1, len(presence.Users()))
}

func TestPresenceLocalUserExcluded(t *testing.T) {
	presence := NewPresenceRegistryWithDefaults("local")

	presence.Update(&UserJoinedMessage{
		Type:   MessageTypeUserJoined,
		UserId: "local",
	})
	presence.Update(&CursorMovedMessage{
		Type:     MessageTypeCursorMoved,
		UserId:   "local",
		FilePath: "/a.ts",
	})

	assert.Equal(t, 0, len(presence.Users()))
}

func TestPresenceReset(t *testing.T) {
	presence := NewPresenceRegistryWithDefaults("local")

	events := 0
	var lastUsers []*PresenceEntry
	var mutex sync.Mutex
	remove := presence.AddPresenceCallback(func(users []*PresenceEntry) {
		mutex.Lock()
		defer mutex.Unlock()
		events += 1
		lastUsers = users
	})
	defer remove()

	presence.Update(&UserJoinedMessage{
		Type:   MessageTypeUserJoined,
		UserId: "u1",
	})
	mutex.Lock()
	assert.Equal(t, 1, events)
	assert.Equal(t, 1, len(lastUsers))
	mutex.Unlock()

	presence.Reset()
	mutex.Lock()
	assert.Equal(t, 2, events)
	assert.Equal(t, 0, len(lastUsers))
	mutex.Unlock()

	// resetting an already-empty registry does not fire
	presence.Reset()
	mutex.Lock()
	assert.Equal(t, 2, events)
	mutex.Unlock()
}

func TestPresenceStaleEviction(t *testing.T) {
	presence := NewPresenceRegistry("local", &PresenceSettings{
		StaleTimeout: 50 * time.Millisecond,
	})

	presence.Update(&UserJoinedMessage{
		Type:   MessageTypeUserJoined,
		UserId: "u1",
	})
	assert.Equal(t, 1, len(presence.Users()))

	time.Sleep(100 * time.Millisecond)

	// eviction happens on the next update
	presence.Update(&UserJoinedMessage{
		Type:   MessageTypeUserJoined,
		UserId: "u2",
	})
	users := presence.Users()
	assert.Equal(t, 1, len(users))
	assert.Equal(t, "u2", users[0].UserId)
}

func TestPresenceStaleEvictionOnNoOpUpdate(t *testing.T) {
	presence := NewPresenceRegistry("local", &PresenceSettings{
		StaleTimeout: 50 * time.Millisecond,
	})

	presence.Update(&UserJoinedMessage{
		Type:   MessageTypeUserJoined,
		UserId: "u1",
	})
	assert.Equal(t, 1, len(presence.Users()))

	time.Sleep(100 * time.Millisecond)

	// an event that changes nothing by itself still triggers eviction
	presence.Update(&UserLeftMessage{
		Type:   MessageTypeUserLeft,
		UserId: "ghost",
	})
	assert.Equal(t, 0, len(presence.Users()))
}
