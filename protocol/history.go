package protocol

import (
	"chat-session/domain"
	"chat-session/errors"
	"encoding/json"
	"fmt"
)

// HistoricalFrame wraps a transcript page item in the same envelope a live
// aws/chat frame uses, flagged as coming from a past session.
func HistoricalFrame(p ChatPayload) ([]byte, error) {
	p.IsFromPastSession = true
	inner, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	content, err := json.Marshal(string(inner))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	return json.Marshal(Frame{Topic: TopicChat, ContentType: p.ContentType, Content: content})
}

// DecodeHistory decodes transcript page items through the live frame path.
// Items that fail to decode are reported and left out.
func DecodeHistory(payloads []ChatPayload) ([]domain.TranscriptItem, []error) {
	items := make([]domain.TranscriptItem, 0, len(payloads))
	var errs []error
	for _, p := range payloads {
		frame, err := HistoricalFrame(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		inbound, err := Decode(frame)
		if err != nil {
			errs = append(errs, fmt.Errorf("transcript item %q: %w", p.ID, err))
			continue
		}
		items = append(items, inbound.Item)
	}
	return items, errs
}
