package projection

import (
	"chat-session/domain"
	"fmt"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func message(id, timestamp, text string) domain.TranscriptItem {
	return domain.TranscriptItem{
		ID:          id,
		Timestamp:   timestamp,
		ContentType: domain.ContentTypePlainText,
		Kind:        domain.KindMessage,
		Message:     domain.Message{ParticipantRole: domain.RoleAgent, Text: text, Direction: domain.Incoming},
	}
}

func ids(t *Transcript) []string {
	return lo.Map(t.Items(), func(item domain.TranscriptItem, _ int) string { return item.ID })
}

func TestTranscript_UpsertAppendsAndDeduplicates(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript()

	// Given unique inbound messages, some delivered twice
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("m%d", i)
		ts := fmt.Sprintf("2026-01-01T10:00:0%dZ", i)
		req.True(transcript.Upsert(message(id, ts, "x")))
		req.False(transcript.Upsert(message(id, ts, "x")))
	}

	// Then there is exactly one entry per id, in arrival order
	req.Equal([]string{"m0", "m1", "m2", "m3", "m4"}, ids(transcript))
	req.Equal(5, transcript.Len())
}

func TestTranscript_UpsertExistingKeepsPosition(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript()
	transcript.Upsert(message("a", "2026-01-01T10:00:00Z", "first"))
	transcript.Upsert(message("b", "2026-01-01T10:00:01Z", "second"))

	changed := transcript.Upsert(message("a", "2026-01-01T10:00:05Z", "edited"))

	req.True(changed)
	req.Equal([]string{"a", "b"}, ids(transcript))
	item, _ := transcript.Get("a")
	req.Equal("edited", item.Message.Text)
}

func TestTranscript_OlderItemGoesToHead(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript()
	transcript.Upsert(message("b", "2026-01-01T10:00:01Z", ""))
	transcript.Upsert(message("c", "2026-01-01T10:00:02Z", ""))

	transcript.Upsert(message("a", "2026-01-01T09:59:59.5Z", ""))
	// Newer than head but older than tail: still appended, no full sort
	transcript.Upsert(message("b2", "2026-01-01T10:00:01.5Z", ""))
	// Pending items have no timestamp and are appended
	transcript.Upsert(message("pending", "", ""))

	req.Equal([]string{"a", "b", "c", "b2", "pending"}, ids(transcript))
}

func TestTranscript_RenameInPlace(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript()
	transcript.Upsert(message("a", "2026-01-01T10:00:00Z", ""))
	transcript.Upsert(message("tmp", "", "hello"))
	transcript.Upsert(message("c", "2026-01-01T10:00:02Z", ""))

	req.True(transcript.Rename("tmp", "srv"))

	req.Equal([]string{"a", "srv", "c"}, ids(transcript))
	req.False(transcript.Contains("tmp"))
	item, ok := transcript.Get("srv")
	req.True(ok)
	req.Equal("srv", item.ID)
	req.Equal("hello", item.Message.Text)
	req.False(transcript.Rename("missing", "x"))
}

func TestTranscript_RenameOntoExistingDropsDuplicate(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript()
	transcript.Upsert(message("tmp", "", "placeholder"))
	transcript.Upsert(message("srv", "2026-01-01T10:00:00Z", "live"))

	transcript.Rename("tmp", "srv")

	req.Equal([]string{"srv"}, ids(transcript))
	item, _ := transcript.Get("srv")
	req.Equal("placeholder", item.Message.Text)
}

func TestTranscript_Update(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript()
	transcript.Upsert(message("a", "", ""))

	req.True(transcript.Update("a", func(item *domain.TranscriptItem) { item.Message.Status = domain.StatusRead }))
	req.False(transcript.Update("a", func(item *domain.TranscriptItem) { item.Message.Status = domain.StatusRead }))
	req.False(transcript.Update("missing", func(item *domain.TranscriptItem) {}))

	item, _ := transcript.Get("a")
	req.Equal(domain.StatusRead, item.Message.Status)
}

func TestTranscript_RemoveWhereAndLast(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript()
	transcript.Upsert(message("a", "2026-01-01T10:00:00Z", ""))
	transcript.Upsert(domain.TranscriptItem{ID: "typing-1", Kind: domain.KindEvent, ContentType: domain.ContentTypeTyping})
	transcript.Upsert(message("b", "2026-01-01T10:00:01Z", ""))
	transcript.Upsert(domain.TranscriptItem{ID: "typing-2", Kind: domain.KindEvent, ContentType: domain.ContentTypeTyping})

	last, ok := transcript.Last(domain.TranscriptItem.IsMessage)
	req.True(ok)
	req.Equal("b", last.ID)

	removed := transcript.RemoveWhere(domain.TranscriptItem.IsTyping)

	req.ElementsMatch([]string{"typing-1", "typing-2"}, removed)
	req.Equal([]string{"a", "b"}, ids(transcript))
	req.False(transcript.Contains("typing-1"))

	req.True(transcript.Remove("a"))
	req.False(transcript.Remove("a"))

	transcript.Clear()
	req.Equal(0, transcript.Len())
	_, ok = transcript.Last(domain.TranscriptItem.IsMessage)
	req.False(ok)
}
