package service

// Broadcaster pushes attempt events to a user's open connections (avoids import cycle)
type Broadcaster interface {
	SendToUser(userID string, msgType string, payload interface{})
}

// Event types sent through the Broadcaster
const (
	EventAttemptStarted   = "attempt_started"
	EventAttemptResumable = "attempt_resumable"
	EventAttemptCleared   = "attempt_cleared"
	EventAttemptSubmitted = "attempt_submitted"
	EventNotification     = "notification"
)

type noopBroadcaster struct{}

func (noopBroadcaster) SendToUser(string, string, interface{}) {}
