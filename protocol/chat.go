package protocol

import (
	"chat-session/domain"
	"chat-session/errors"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

const (
	TypeMessage         = "MESSAGE"
	TypeEvent           = "EVENT"
	TypeAttachment      = "ATTACHMENT"
	TypeMessageMetadata = "MESSAGEMETADATA"
)

// ChatPayload is a chat item as the service serialises it, both inside socket
// frames and in transcript pages.
type ChatPayload struct {
	ID                string           `json:"Id"`
	ParticipantRole   string           `json:"ParticipantRole,omitempty"`
	ParticipantID     string           `json:"ParticipantId,omitempty"`
	AbsoluteTime      string           `json:"AbsoluteTime,omitempty"`
	ContentType       string           `json:"ContentType,omitempty"`
	Content           string           `json:"Content,omitempty"`
	Attachments       []Attachment     `json:"Attachments,omitempty"`
	MessageMetadata   *MessageMetadata `json:"MessageMetadata,omitempty"`
	Type              string           `json:"Type"`
	DisplayName       string           `json:"DisplayName,omitempty"`
	InitialContactID  string           `json:"InitialContactId,omitempty"`
	IsFromPastSession bool             `json:"IsFromPastSession,omitempty"`
}

type Attachment struct {
	AttachmentID   string `json:"AttachmentId"`
	AttachmentName string `json:"AttachmentName"`
	ContentType    string `json:"ContentType"`
	Status         string `json:"Status,omitempty"`
}

type MessageMetadata struct {
	MessageID string    `json:"MessageId"`
	Receipts  []Receipt `json:"Receipts,omitempty"`
}

type Receipt struct {
	DeliveredTimestamp     string `json:"DeliveredTimestamp,omitempty"`
	ReadTimestamp          string `json:"ReadTimestamp,omitempty"`
	RecipientParticipantID string `json:"RecipientParticipantId,omitempty"`
}

// DecodeChat turns the inner JSON payload of an aws/chat frame into a transcript item.
func DecodeChat(data []byte) (domain.TranscriptItem, error) {
	var p ChatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.TranscriptItem{}, fmt.Errorf("%w: chat payload: %v", errors.ErrMalformedFrame, err)
	}
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)

	switch p.Type {
	case TypeMessage:
		return decodeMessage(p, raw)
	case TypeEvent:
		return decodeEvent(p, raw)
	case TypeAttachment:
		return decodeAttachment(p, raw)
	case TypeMessageMetadata:
		return decodeMetadata(p, raw)
	default:
		return domain.TranscriptItem{}, fmt.Errorf("%w: %q", errors.ErrUnknownItemType, p.Type)
	}
}

func base(p ChatPayload, kind domain.ItemKind, raw map[string]any) domain.TranscriptItem {
	return domain.TranscriptItem{
		ID:              p.ID,
		Timestamp:       p.AbsoluteTime,
		ContentType:     p.ContentType,
		Kind:            kind,
		FromPastSession: p.IsFromPastSession,
		RawContent:      raw,
	}
}

func decodeMessage(p ChatPayload, raw map[string]any) (domain.TranscriptItem, error) {
	if p.ID == "" {
		return domain.TranscriptItem{}, fmt.Errorf("%w: message without id", errors.ErrMalformedFrame)
	}
	role := domain.ParticipantRole(p.ParticipantRole)
	item := base(p, domain.KindMessage, raw)
	item.Message = domain.Message{
		ParticipantRole: role,
		ParticipantID:   p.ParticipantID,
		Text:            p.Content,
		Direction:       domain.DirectionFor(role),
		DisplayName:     p.DisplayName,
	}
	if p.MessageMetadata != nil {
		item.Message.Status = domain.StatusFromReceipts(receipts(p.MessageMetadata))
	}
	return item, nil
}

func decodeEvent(p ChatPayload, raw map[string]any) (domain.TranscriptItem, error) {
	if !domain.IsEventContentType(p.ContentType) {
		return domain.TranscriptItem{}, fmt.Errorf("%w: event %q", errors.ErrUnknownContentType, p.ContentType)
	}
	if p.ID == "" {
		return domain.TranscriptItem{}, fmt.Errorf("%w: event without id", errors.ErrMalformedFrame)
	}
	item := base(p, domain.KindEvent, raw)
	item.Event = domain.Event{
		ParticipantRole: domain.ParticipantRole(p.ParticipantRole),
		ParticipantID:   p.ParticipantID,
		Text:            p.Content,
		DisplayName:     p.DisplayName,
		Direction:       domain.Common,
	}
	return item, nil
}

// decodeAttachment only looks at the first attachment descriptor.
func decodeAttachment(p ChatPayload, raw map[string]any) (domain.TranscriptItem, error) {
	if len(p.Attachments) == 0 {
		return domain.TranscriptItem{}, fmt.Errorf("%w: attachment item without descriptor", errors.ErrMalformedFrame)
	}
	if p.ID == "" {
		return domain.TranscriptItem{}, fmt.Errorf("%w: attachment without id", errors.ErrMalformedFrame)
	}
	attachment := p.Attachments[0]
	role := domain.ParticipantRole(p.ParticipantRole)
	item := base(p, domain.KindMessage, raw)
	item.ContentType = attachment.ContentType
	item.Message = domain.Message{
		ParticipantRole: role,
		ParticipantID:   p.ParticipantID,
		Text:            attachment.AttachmentName,
		Direction:       domain.DirectionFor(role),
		AttachmentID:    attachment.AttachmentID,
		DisplayName:     p.DisplayName,
	}
	if p.MessageMetadata != nil {
		item.Message.Status = domain.StatusFromReceipts(receipts(p.MessageMetadata))
	}
	return item, nil
}

// decodeMetadata keys the item by the message it describes.
func decodeMetadata(p ChatPayload, raw map[string]any) (domain.TranscriptItem, error) {
	if p.MessageMetadata == nil || p.MessageMetadata.MessageID == "" {
		return domain.TranscriptItem{}, fmt.Errorf("%w: metadata without message id", errors.ErrMalformedFrame)
	}
	item := base(p, domain.KindMetadata, raw)
	item.ID = p.MessageMetadata.MessageID
	rs := receipts(p.MessageMetadata)
	item.Metadata = domain.Metadata{
		Status:    domain.StatusFromReceipts(rs),
		Direction: domain.Outgoing,
		Receipts:  rs,
	}
	return item, nil
}

func receipts(m *MessageMetadata) []domain.Receipt {
	return lo.Map(m.Receipts, func(r Receipt, _ int) domain.Receipt {
		return domain.Receipt{
			RecipientParticipantID: r.RecipientParticipantID,
			DeliveredTimestamp:     r.DeliveredTimestamp,
			ReadTimestamp:          r.ReadTimestamp,
		}
	})
}
