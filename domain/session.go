package domain

import (
	"sync"
	"time"
)

// ChatDetails identifies the participant of a started contact. Issued out of band.
type ChatDetails struct {
	ContactID        string
	ParticipantID    string
	ParticipantToken string `validate:"required"`
}

// ConnectionDetails is what the remote service returns when a connection is created.
type ConnectionDetails struct {
	WebsocketURL    string `validate:"required,url"`
	ConnectionToken string `validate:"required"`
	Expiry          *time.Time
}

// SessionContext holds the per-session state shared between the orchestrator
// and the connection supervisor. The host creates one per chat session.
type SessionContext struct {
	mu         sync.RWMutex
	chat       *ChatDetails
	connection *ConnectionDetails
	active     bool
}

func NewSessionContext() *SessionContext {
	return &SessionContext{}
}

func (s *SessionContext) SetChatDetails(details ChatDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = &details
}

func (s *SessionContext) ChatDetails() (ChatDetails, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.chat == nil {
		return ChatDetails{}, false
	}
	return *s.chat, true
}

func (s *SessionContext) SetConnectionDetails(details ConnectionDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connection = &details
}

func (s *SessionContext) ConnectionDetails() (ConnectionDetails, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.connection == nil {
		return ConnectionDetails{}, false
	}
	return *s.connection, true
}

func (s *SessionContext) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *SessionContext) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Reset forgets every detail and marks the session inactive.
func (s *SessionContext) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = nil
	s.connection = nil
	s.active = false
}
