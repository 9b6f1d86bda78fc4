package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered      EventType = "user.registered"
	EventSessionStarted      EventType = "session.started"
	EventSessionRefreshed    EventType = "session.refreshed"
	EventSessionEnded        EventType = "session.ended"
	EventSessionRevokeFailed EventType = "session.revoke_failed"
)

// LoginMethod records how a session was started.
type LoginMethod string

const (
	LoginMethodPassword LoginMethod = "password"
	LoginMethodGoogle   LoginMethod = "google"
)

// Event represents a session lifecycle event. Payloads never carry token values.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// SessionStartedPayload payload.
type SessionStartedPayload struct {
	Method    LoginMethod `json:"method"`
	SessionID string      `json:"session_id"`
}

// SessionEndedPayload payload.
type SessionEndedPayload struct {
	HadToken bool `json:"had_token"`
	Revoked  bool `json:"revoked"`
}

// RevokeFailedPayload payload.
type RevokeFailedPayload struct {
	Reason string `json:"reason"`
}
