package events

import (
	"fmt"
	"strings"
	"time"
)

// EventType enumerates live event envelopes.
type EventType string

const (
	EventTicketUpdate   EventType = "ticket_update"
	EventCommentUpdate  EventType = "comment_update"
	EventFeedbackUpdate EventType = "feedback_update"
	EventNotification   EventType = "notification"
	EventStatusUpdate   EventType = "status_update"
)

// Broadcast topics every live session joins.
const (
	TopicTicketUpdates   = "ticket_updates"
	TopicCommentUpdates  = "comment_updates"
	TopicFeedbackUpdates = "feedback_updates"
)

// BroadcastTopics returns the topics shared by all sessions.
func BroadcastTopics() []string {
	return []string{TopicTicketUpdates, TopicCommentUpdates, TopicFeedbackUpdates}
}

const userTopicPrefix = "user:"

// UserTopic is the private topic of one user.
func UserTopic(userID int64) string {
	return fmt.Sprintf("%s%d", userTopicPrefix, userID)
}

// IsUserTopic reports whether topic is a private user topic.
func IsUserTopic(topic string) bool {
	return strings.HasPrefix(topic, userTopicPrefix)
}

// Actions carried by broadcast envelopes.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionArchived  = "archived"
	ActionCommented = "commented"
	ActionEdited    = "edited"
	ActionDeleted   = "deleted"
	ActionSubmitted = "submitted"
)

// Event is the envelope pushed to live sessions.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Action    string    `json:"action,omitempty"`
	TicketID  int64     `json:"ticket_id,omitempty"`
	ActorID   int64     `json:"actor_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// StatusChangedPayload describes a status transition.
type StatusChangedPayload struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// NotificationPayload is the serialized in-app notification.
type NotificationPayload struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
	Read      bool    `json:"read"`
	ActionURL *string `json:"actionUrl"`
}
