package domain

type ReceiptKind int

const (
	ReceiptDelivered ReceiptKind = iota
	ReceiptRead
)

func (k ReceiptKind) String() string {
	if k == ReceiptRead {
		return "read"
	}
	return "delivered"
}

// ContentType is the event content type used to send this receipt.
func (k ReceiptKind) ContentType() string {
	if k == ReceiptRead {
		return ContentTypeMessageRead
	}
	return ContentTypeMessageDelivered
}

// PendingReceipts holds at most one delivered and one read message id waiting to be flushed.
type PendingReceipts struct {
	DeliveredMessageID string
	ReadMessageID      string
}

// Normalize clears the delivered id when the same message is also pending as read.
func (p PendingReceipts) Normalize() PendingReceipts {
	if p.DeliveredMessageID != "" && p.DeliveredMessageID == p.ReadMessageID {
		p.DeliveredMessageID = ""
	}
	return p
}

func (p PendingReceipts) IsEmpty() bool {
	return p.DeliveredMessageID == "" && p.ReadMessageID == ""
}
