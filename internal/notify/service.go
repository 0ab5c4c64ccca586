package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hackgods/dermaclinic-admin/internal/appointment"
	"github.com/hackgods/dermaclinic-admin/internal/db"
	"github.com/hackgods/dermaclinic-admin/internal/metrics"
)

var (
	ErrUnknownKind  = errors.New("unknown notification kind")
	ErrNoRecipient  = errors.New("appointment has no user to notify")
	ErrInvalidInput = errors.New("invalid notification")
)

// Kind names an appointment lifecycle event.
type Kind string

const (
	KindApproved  Kind = "approved"
	KindDeclined  Kind = "declined"
	KindCancelled Kind = "cancelled"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindApproved, KindDeclined, KindCancelled:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Skip reasons returned when a chat message produces no notification.
const (
	SkipChatNotFound = "chat not found"
	SkipNoRecipient  = "recipient could not be determined"
)

// Store contains the store operations needed by the notifier.
type Store interface {
	Get(ctx context.Context, collection, id string) (*db.Document, error)
	Insert(ctx context.Context, collection string, data db.Fields) (string, error)
}

// Outcome reports what happened to a chat message notification. Skipped is
// empty when a notification was written.
type Outcome struct {
	NotificationID string    `json:"notificationId,omitempty"`
	Recipient      Recipient `json:"recipient"`
	Skipped        string    `json:"skipped,omitempty"`
}

type Service struct {
	store   Store
	metrics *metrics.NotifyMetrics
	log     zerolog.Logger
}

func NewService(store Store, m *metrics.NotifyMetrics, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		metrics: m,
		log:     log.With().Str("component", "notify").Logger(),
	}
}

// NotifyMessage fans a chat message out to the other side of the chat.
// A missing chat or an unknown sender is reported as a skip, not an error, so
// that callers never fail a message send because of its notification.
func (s *Service) NotifyMessage(ctx context.Context, msg Message) (Outcome, error) {
	chat, err := s.store.Get(ctx, db.CollectionChats, msg.ChatID)
	if err != nil {
		if errors.Is(err, db.ErrDocumentNotFound) {
			s.skip(TypeNewMessage, msg.ChatID, SkipChatNotFound)
			return Outcome{Skipped: SkipChatNotFound}, nil
		}
		return Outcome{}, fmt.Errorf("load chat: %w", err)
	}

	to, ok := InferRecipient(chat.Data, msg.SenderID)
	if !ok {
		s.skip(TypeNewMessage, msg.ChatID, SkipNoRecipient)
		return Outcome{Skipped: SkipNoRecipient}, nil
	}

	id, err := s.Send(ctx, NewMessageNotification(msg, to))
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{NotificationID: id, Recipient: to}, nil
}

// NotifyAppointment tells the booking's user about an approval, decline or
// cancellation.
func (s *Service) NotifyAppointment(ctx context.Context, appointmentID string, kind Kind, reason string) (string, error) {
	doc, err := s.store.Get(ctx, db.CollectionAppointments, appointmentID)
	if err != nil {
		if errors.Is(err, db.ErrDocumentNotFound) {
			return "", appointment.ErrAppointmentNotFound
		}
		return "", fmt.Errorf("load appointment: %w", err)
	}

	b := bookingFrom(appointment.DecodeAppointment(*doc))
	if b.UserID == "" {
		return "", ErrNoRecipient
	}

	var n Notification
	switch kind {
	case KindApproved:
		n = ApprovedNotification(b)
	case KindDeclined:
		n = DeclinedNotification(b, reason)
	case KindCancelled:
		n = CancelledNotification(b, reason)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s.Send(ctx, n)
}

// NotifyPayment confirms a settled payment to the user.
func (s *Service) NotifyPayment(ctx context.Context, userID, email, name string, p Payment) (string, error) {
	if userID == "" {
		return "", ErrNoRecipient
	}
	return s.Send(ctx, PaymentNotification(userID, email, name, p))
}

// Send writes a prepared notification.
func (s *Service) Send(ctx context.Context, n Notification) (string, error) {
	if n.UserID == "" || n.Title == "" {
		return "", fmt.Errorf("%w: recipient and title are required", ErrInvalidInput)
	}

	id, err := s.store.Insert(ctx, db.CollectionNotifications, n.Fields())
	if err != nil {
		s.metrics.Observe(string(n.Type), "error")
		s.log.Error().Err(err).Str("type", string(n.Type)).Str("user_id", n.UserID).Msg("failed to write notification")
		return "", fmt.Errorf("write notification: %w", err)
	}

	s.metrics.Observe(string(n.Type), "sent")
	s.log.Info().
		Str("notification_id", id).
		Str("type", string(n.Type)).
		Str("user_id", n.UserID).
		Msg("notification sent")
	return id, nil
}

func (s *Service) skip(t Type, ref, reason string) {
	s.metrics.Observe(string(t), "skipped")
	s.log.Warn().Str("type", string(t)).Str("ref", ref).Msg("notification skipped: " + reason)
}

func bookingFrom(rec appointment.AppointmentRecord) Booking {
	userID := rec.UserID
	if userID == "" {
		userID = rec.PatientID
	}
	return Booking{
		AppointmentID: rec.ID,
		UserID:        userID,
		UserEmail:     rec.CandidateEmail(),
		UserName:      rec.UserName,
		ServiceName:   rec.Service(),
		Date:          rec.StoredString(appointment.FieldAppointmentDate),
		TimeSlot:      rec.StoredString(appointment.FieldTimeSlot),
		Amount:        rec.Amount,
	}
}
