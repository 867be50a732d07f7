package session

import (
	"testing"
	"time"

	"github.com/chatarr/chatarr/internal/services/arr"
)

func TestCursorStopsAtLastResult(t *testing.T) {
	sess := &Session{
		Results: []arr.SearchResult{{Title: "a"}, {Title: "b"}, {Title: "c"}},
	}

	if sess.AtLastResult() {
		t.Error("Cursor 0 of 3 is not the last result")
	}
	if !sess.Advance() || sess.Cursor != 1 {
		t.Fatalf("First advance failed, cursor=%d", sess.Cursor)
	}
	if !sess.Advance() || sess.Cursor != 2 {
		t.Fatalf("Second advance failed, cursor=%d", sess.Cursor)
	}
	if !sess.AtLastResult() {
		t.Error("Cursor should be at the last result")
	}
	if sess.Advance() {
		t.Error("Advance must not move past the last result")
	}
	if sess.Cursor != 2 {
		t.Errorf("Cursor moved out of range: %d", sess.Cursor)
	}
}

func TestCurrentOnEmptyResults(t *testing.T) {
	sess := &Session{}
	if sess.Current() != nil {
		t.Error("Current on empty results should be nil")
	}
}

func TestSeasonSelection(t *testing.T) {
	sess := &Session{
		Seasons:         []int{1, 2, 3},
		SelectedSeasons: map[int]bool{2: true},
	}

	selection := sess.SeasonSelection()
	if len(selection) != 3 {
		t.Fatalf("Expected 3 seasons, got %d", len(selection))
	}
	for _, s := range selection {
		if s.Monitored != (s.SeasonNumber == 2) {
			t.Errorf("Season %d monitored=%v", s.SeasonNumber, s.Monitored)
		}
	}
}

func TestStoreFetchAndClear(t *testing.T) {
	store := NewStore(time.Minute)

	if store.Get(1) != nil {
		t.Error("Get on an empty store should be nil")
	}

	sess := store.Fetch(1)
	if sess == nil || sess.State != StateIdle {
		t.Fatal("Fetch should create an idle session")
	}
	sess.State = StateAwaitTitle

	again := store.Fetch(1)
	if again != sess {
		t.Error("Fetch should return the same session instance")
	}
	if again.State != StateAwaitTitle {
		t.Error("Session state was not preserved")
	}

	store.Clear(1)
	if store.Get(1) != nil {
		t.Error("Clear should drop the session")
	}
	if store.Fetch(1).State != StateIdle {
		t.Error("Fetch after Clear should start idle again")
	}
}

func TestStoreIsolatesChats(t *testing.T) {
	store := NewStore(time.Minute)
	a := store.Fetch(1)
	b := store.Fetch(2)
	a.SearchTerm = "first"
	if b.SearchTerm != "" {
		t.Error("Sessions of different chats must not share state")
	}
}
