package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// View identifies which of the mutually exclusive UI stages is visible.
type View string

const (
	ViewInput      View = "input"
	ViewGenerating View = "generating"
	ViewPreview    View = "preview"
	ViewPaid       View = "paid"
)

// PaymentPhase tracks where a payment attempt is within its lifecycle.
type PaymentPhase string

const (
	PhaseIdle             PaymentPhase = "idle"
	PhaseCreatingOrder    PaymentPhase = "creating_order"
	PhaseAwaitingCheckout PaymentPhase = "awaiting_checkout"
	PhaseVerifying        PaymentPhase = "verifying"
	PhaseUnlocked         PaymentPhase = "unlocked"
)

// NotificationLevel mirrors the toast levels shown to the user.
type NotificationLevel string

const (
	NotifyInfo    NotificationLevel = "info"
	NotifySuccess NotificationLevel = "success"
	NotifyWarning NotificationLevel = "warning"
	NotifyError   NotificationLevel = "error"
)

type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

// Session is the per-user orchestration state. It replaces the free-floating
// request-id and cancellation handle with one explicit value object owned by
// the services and persisted between page loads.
type Session struct {
	ID            string         `json:"id"`
	View          View           `json:"view"`
	PaymentPhase  PaymentPhase   `json:"payment_phase"`
	RequestID     string         `json:"request_id,omitempty"`
	PreviewURL    string         `json:"preview_url,omitempty"`
	PaidVideoURL  string         `json:"paid_video_url,omitempty"`
	Generation    int            `json:"generation"` // epoch; bumped on every start/cancel
	Notifications []Notification `json:"notifications,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewSession returns a fresh session on the input view.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		View:         ViewInput,
		PaymentPhase: PhaseIdle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// allowedTransitions keeps the view sections mutually exclusive: every view
// change goes through TransitionTo, never through ad hoc toggling.
var allowedTransitions = map[View][]View{
	ViewInput:      {ViewGenerating, ViewPreview, ViewPaid},
	ViewGenerating: {ViewInput, ViewPreview},
	ViewPreview:    {ViewInput, ViewPaid},
	ViewPaid:       {ViewInput},
}

// TransitionTo moves the session to the given view. Transitioning to the
// current view is a no-op. Recovery paths enter preview/paid straight from
// input, which is why those edges exist.
func (s *Session) TransitionTo(v View) error {
	if s.View == v {
		return nil
	}
	for _, next := range allowedTransitions[s.View] {
		if next == v {
			s.View = v
			s.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid view transition %s -> %s", s.View, v)
}

// Notify appends a toast-style notification for the page to render.
func (s *Session) Notify(level NotificationLevel, message string) {
	s.Notifications = append(s.Notifications, Notification{Level: level, Message: message})
}

// DrainNotifications returns pending notifications and clears the queue.
func (s *Session) DrainNotifications() []Notification {
	n := s.Notifications
	s.Notifications = nil
	return n
}
