// Package session keeps the per-chat conversation state. One Session
// exists per chat for the lifetime of one add/delete flow; abandoned
// sessions age out of the cache so a user who walks away mid-dialogue
// does not pin memory forever.
package session

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/chatarr/chatarr/internal/services/arr"
)

// State names one step of the conversation state machine.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitAuth     State = "await_auth"
	StateAwaitTitle    State = "await_title"
	StateAwaitType     State = "await_type"
	StateAwaitInstance State = "await_instance"
	StateAwaitOption   State = "await_option"
	StateAwaitPath     State = "await_path"
	StateAwaitProfile  State = "await_profile"
	StateAwaitSeasons  State = "await_seasons"

	StateAwaitDeleteTitle    State = "await_delete_title"
	StateAwaitDeleteType     State = "await_delete_type"
	StateAwaitDeleteInstance State = "await_delete_instance"
	StateAwaitDeleteOption   State = "await_delete_option"

	StateAwaitTransmissionSpeed State = "await_transmission_speed"
	StateAwaitSabnzbdSpeed      State = "await_sabnzbd_speed"
	StateAwaitQbittorrentSpeed  State = "await_qbittorrent_speed"
)

// Flow distinguishes the add and delete conversation chains.
type Flow string

const (
	FlowAdd    Flow = "add"
	FlowDelete Flow = "delete"
)

// Session is the mutable scratch space of one chat's conversation.
// Clearing a session means resetting it to the zero value, never
// mutating individual fields back.
type Session struct {
	ChatID int64
	State  State
	Flow   Flow

	MediaType     arr.MediaType
	InstanceLabel string
	SearchTerm    string

	Results []arr.SearchResult
	Cursor  int

	Paths           []string
	Path            string
	ProfileIDs      []int64
	ProfileID       int64
	Seasons         []int
	SelectedSeasons map[int]bool

	// Message ids of the in-place editable card.
	TitleMsgID int
	PhotoMsgID int
	MenuMsgID  int
}

// Current returns the result the cursor points at, or nil when there
// are no results.
func (s *Session) Current() *arr.SearchResult {
	if len(s.Results) == 0 || s.Cursor < 0 || s.Cursor >= len(s.Results) {
		return nil
	}
	return &s.Results[s.Cursor]
}

// Advance moves the cursor one result forward, stopping at the last
// index. It reports whether the cursor actually moved.
func (s *Session) Advance() bool {
	if s.Cursor >= len(s.Results)-1 {
		return false
	}
	s.Cursor++
	return true
}

// AtLastResult reports whether the cursor sits on the final result.
func (s *Session) AtLastResult() bool {
	return s.Cursor >= len(s.Results)-1
}

// SeasonSelection renders the per-season toggle map into the form the
// add call wants: every known season, monitored iff selected.
func (s *Session) SeasonSelection() []arr.Season {
	selection := make([]arr.Season, 0, len(s.Seasons))
	for _, number := range s.Seasons {
		selection = append(selection, arr.Season{
			SeasonNumber: number,
			Monitored:    s.SelectedSeasons[number],
		})
	}
	return selection
}

// Store holds the active sessions, keyed by chat id. Entries expire
// after the TTL so abandoned conversations clean themselves up.
type Store struct {
	cache *cache.Cache
}

// NewStore creates a session store with the given idle TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

// Get returns the session for a chat, or nil when none is active.
func (s *Store) Get(chatID int64) *Session {
	if v, ok := s.cache.Get(key(chatID)); ok {
		return v.(*Session)
	}
	return nil
}

// Fetch returns the session for a chat, creating an idle one if none
// exists. Each access refreshes the TTL.
func (s *Store) Fetch(chatID int64) *Session {
	if sess := s.Get(chatID); sess != nil {
		s.cache.Set(key(chatID), sess, cache.DefaultExpiration)
		return sess
	}
	sess := &Session{ChatID: chatID, State: StateIdle}
	s.cache.Set(key(chatID), sess, cache.DefaultExpiration)
	return sess
}

// Clear drops all conversation state for a chat.
func (s *Store) Clear(chatID int64) {
	s.cache.Delete(key(chatID))
}

func key(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
