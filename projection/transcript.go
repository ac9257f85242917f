// Package projection holds the in-memory transcript of a session.
// Handles ordering, deduplication, and in-place updates.
// Does not emit notifications; the session decides what to publish from the returned change flags.
package projection

import (
	"chat-session/domain"
	"reflect"
	"slices"
	"time"
)

// Transcript is an ordered, id-keyed collection of transcript items.
// It is not safe for concurrent use; the session loop owns it.
type Transcript struct {
	order []string
	byID  map[string]domain.TranscriptItem
}

func NewTranscript() *Transcript {
	return &Transcript{byID: make(map[string]domain.TranscriptItem)}
}

func (t *Transcript) Len() int { return len(t.order) }

func (t *Transcript) Contains(id string) bool {
	_, ok := t.byID[id]
	return ok
}

func (t *Transcript) Get(id string) (domain.TranscriptItem, bool) {
	item, ok := t.byID[id]
	return item, ok
}

// Upsert stores item under its id. An existing entry keeps its position.
// A new entry goes to the head when it predates the current head, to the tail otherwise.
// It reports whether the transcript changed.
func (t *Transcript) Upsert(item domain.TranscriptItem) bool {
	if existing, ok := t.byID[item.ID]; ok {
		if reflect.DeepEqual(existing, item) {
			return false
		}
		t.byID[item.ID] = item
		return true
	}
	t.byID[item.ID] = item
	if len(t.order) > 0 && precedes(item.Timestamp, t.byID[t.order[0]].Timestamp) {
		t.order = slices.Insert(t.order, 0, item.ID)
	} else {
		t.order = append(t.order, item.ID)
	}
	return true
}

// Update applies fn to a copy of the stored item and keeps the result if it differs.
func (t *Transcript) Update(id string, fn func(item *domain.TranscriptItem)) bool {
	existing, ok := t.byID[id]
	if !ok {
		return false
	}
	updated := existing
	fn(&updated)
	if updated.ID != id {
		// Identity changes go through Rename
		updated.ID = id
	}
	if reflect.DeepEqual(existing, updated) {
		return false
	}
	t.byID[id] = updated
	return true
}

// Rename gives the entry oldID the id newID without moving it.
// Any other entry already stored under newID is dropped.
func (t *Transcript) Rename(oldID, newID string) bool {
	item, ok := t.byID[oldID]
	if !ok || oldID == newID {
		return false
	}
	if _, taken := t.byID[newID]; taken {
		t.Remove(newID)
	}
	idx := slices.Index(t.order, oldID)
	t.order[idx] = newID
	delete(t.byID, oldID)
	item.ID = newID
	t.byID[newID] = item
	return true
}

func (t *Transcript) Remove(id string) bool {
	if _, ok := t.byID[id]; !ok {
		return false
	}
	delete(t.byID, id)
	t.order = slices.DeleteFunc(t.order, func(s string) bool { return s == id })
	return true
}

// RemoveWhere drops every item matching pred and returns their ids.
func (t *Transcript) RemoveWhere(pred func(domain.TranscriptItem) bool) []string {
	var removed []string
	t.order = slices.DeleteFunc(t.order, func(id string) bool {
		if pred(t.byID[id]) {
			removed = append(removed, id)
			return true
		}
		return false
	})
	for _, id := range removed {
		delete(t.byID, id)
	}
	return removed
}

// Last returns the item closest to the tail matching pred.
func (t *Transcript) Last(pred func(domain.TranscriptItem) bool) (domain.TranscriptItem, bool) {
	for i := len(t.order) - 1; i >= 0; i-- {
		if item := t.byID[t.order[i]]; pred(item) {
			return item, true
		}
	}
	return domain.TranscriptItem{}, false
}

// Items returns a snapshot in transcript order.
func (t *Transcript) Items() []domain.TranscriptItem {
	items := make([]domain.TranscriptItem, 0, len(t.order))
	for _, id := range t.order {
		items = append(items, t.byID[id])
	}
	return items
}

func (t *Transcript) Clear() {
	t.order = nil
	t.byID = make(map[string]domain.TranscriptItem)
}

// precedes reports whether timestamp a is strictly earlier than b.
// Pending items have no timestamp and never precede anything.
func precedes(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA == nil && errB == nil {
		return ta.Before(tb)
	}
	return a < b
}
