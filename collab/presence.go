package collab

import (
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Derived view of the other collaborators in a project, keyed by user id.
// All mutations are last-write-wins: there is no sequencing token on the
// wire, so a late-arriving stale update can overwrite a fresher one. This is
// inherited platform behavior, not something the registry corrects.
//
// The registry never contains the local user.

type PresenceFunction func(users []*PresenceEntry)

type PresenceSettings struct {
	// entries not seen within this window are evicted on the next update.
	// zero disables eviction; entries then only leave on user_left or on a
	// snapshot replace.
	StaleTimeout time.Duration
}

func DefaultPresenceSettings() *PresenceSettings {
	return &PresenceSettings{
		StaleTimeout: 0,
	}
}

type PresenceRegistry struct {
	localUserId string
	settings    *PresenceSettings

	stateLock sync.Mutex
	users     map[string]*PresenceEntry

	presenceCallbacks *CallbackList[PresenceFunction]
}

func NewPresenceRegistryWithDefaults(localUserId string) *PresenceRegistry {
	return NewPresenceRegistry(localUserId, DefaultPresenceSettings())
}

func NewPresenceRegistry(localUserId string, settings *PresenceSettings) *PresenceRegistry {
	return &PresenceRegistry{
		localUserId:       localUserId,
		settings:          settings,
		users:             map[string]*PresenceEntry{},
		presenceCallbacks: NewCallbackList[PresenceFunction](),
	}
}

// folds one inbound event into the registry
func (self *PresenceRegistry) Update(message IncomingMessage) {
	changed := false

	self.stateLock.Lock()
	switch v := message.(type) {
	case *ActiveUsersMessage:
		// full replace with the snapshot
		users := map[string]*PresenceEntry{}
		for _, user := range v.Users {
			if user == nil || user.UserId == "" || user.UserId == self.localUserId {
				continue
			}
			entryCopy := *user
			users[user.UserId] = &entryCopy
		}
		self.users = users
		changed = true
	case *UserJoinedMessage:
		if v.UserId != "" && v.UserId != self.localUserId {
			// a duplicate join overwrites
			self.users[v.UserId] = &PresenceEntry{
				UserId:    v.UserId,
				UserName:  v.UserName,
				UserEmail: v.UserEmail,
				FilePath:  "",
				LastSeen:  eventTime(v.Timestamp),
			}
			changed = true
		}
	case *UserLeftMessage:
		if _, ok := self.users[v.UserId]; ok {
			delete(self.users, v.UserId)
			changed = true
		}
	case *CursorMovedMessage:
		if v.UserId != "" && v.UserId != self.localUserId {
			entry, ok := self.users[v.UserId]
			if !ok {
				// defensive create rather than dropping the event
				entry = &PresenceEntry{
					UserId:    v.UserId,
					UserName:  v.UserName,
					UserEmail: v.UserEmail,
				}
				self.users[v.UserId] = entry
			}
			entry.FilePath = v.FilePath
			entry.Cursor = v.Cursor
			entry.LastSeen = eventTime(v.Timestamp)
			changed = true
		}
	case *ContentChangedMessage:
		// does not mutate any local document content
		if entry, ok := self.users[v.UserId]; ok {
			entry.LastSeen = eventTime(v.Timestamp)
			changed = true
		}
	case *FileModifiedMessage:
		// primarily routed to the invalidation handler. here it only
		// refreshes the last-seen timestamp of a tracked user
		if entry, ok := self.users[v.UserId]; ok {
			entry.LastSeen = eventTime(v.Timestamp)
			changed = true
		}
	}

	if self.evictStale() {
		changed = true
	}
	self.stateLock.Unlock()

	if changed {
		self.presenceEvent()
	}
}

// must be called with `stateLock`
func (self *PresenceRegistry) evictStale() bool {
	if self.settings.StaleTimeout <= 0 {
		return false
	}
	horizon := time.Now().Add(-self.settings.StaleTimeout)
	evicted := false
	for userId, entry := range self.users {
		if entry.LastSeen.Before(horizon) {
			delete(self.users, userId)
			evicted = true
		}
	}
	return evicted
}

// deterministic snapshot, ordered by user id
func (self *PresenceRegistry) Users() []*PresenceEntry {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	userIds := maps.Keys(self.users)
	slices.Sort(userIds)

	out := make([]*PresenceEntry, 0, len(userIds))
	for _, userId := range userIds {
		entryCopy := *self.users[userId]
		out = append(out, &entryCopy)
	}
	return out
}

// drops all entries. called on disconnect; the next active_users snapshot
// repopulates the registry.
func (self *PresenceRegistry) Reset() {
	self.stateLock.Lock()
	empty := len(self.users) == 0
	self.users = map[string]*PresenceEntry{}
	self.stateLock.Unlock()

	if !empty {
		self.presenceEvent()
	}
}

func (self *PresenceRegistry) presenceEvent() {
	callbacks := self.presenceCallbacks.Get()
	if len(callbacks) == 0 {
		return
	}
	users := self.Users()
	for _, presenceCallback := range callbacks {
		presenceCallback(users)
	}
}

func (self *PresenceRegistry) AddPresenceCallback(presenceCallback PresenceFunction) func() {
	callbackId := self.presenceCallbacks.Add(presenceCallback)
	return func() {
		self.presenceCallbacks.Remove(callbackId)
	}
}

func eventTime(timestamp time.Time) time.Time {
	if timestamp.IsZero() {
		return time.Now()
	}
	return timestamp
}
