package domain

// Topic selects which notifications a subscriber receives.
type Topic int

const (
	TopicLifecycle Topic = iota
	TopicItem
	TopicTranscript
)

// Notification is what the session publishes after each change.
// Exactly one payload field is set, matching Topic.
type Notification struct {
	Topic      Topic
	Event      ChatEvent
	Item       TranscriptItem
	Transcript []TranscriptItem
}

type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Open
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Open:
		return "Open"
	default:
		return "Disconnected"
	}
}
