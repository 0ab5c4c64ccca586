package notify

import (
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/hackgods/dermaclinic-admin/internal/db"
)

type Type string

const (
	TypeNewMessage          Type = "new_message"
	TypeAppointmentApproved Type = "appointment_approved"
	TypeAppointmentDeclined Type = "appointment_declined"
	TypeAppointmentCancel   Type = "appointment_cancelled"
	TypePaymentReceived     Type = "payment_received"
	TypeGeneral             Type = "general_message"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// maxPreview is the number of characters of a chat message copied into the
// notification body.
const maxPreview = 100

// Notification is one document in the notifications collection.
type Notification struct {
	UserID    string
	UserEmail string
	UserName  string
	Type      Type
	Title     string
	Message   string
	Priority  Priority
	RelatedTo db.Fields
	ActionURL string
}

// Fields renders the stored document body. Notifications start unread.
func (n Notification) Fields() db.Fields {
	f := db.Fields{
		"userId":   n.UserID,
		"type":     string(n.Type),
		"title":    n.Title,
		"message":  n.Message,
		"priority": string(n.Priority),
		"read":     false,
		"readAt":   nil,
	}
	if n.UserEmail != "" {
		f["userEmail"] = n.UserEmail
	}
	if n.UserName != "" {
		f["userName"] = n.UserName
	}
	if len(n.RelatedTo) > 0 {
		f["relatedTo"] = map[string]any(n.RelatedTo)
	}
	if n.ActionURL != "" {
		f["actionUrl"] = n.ActionURL
	}
	return f
}

// Message describes a chat message that was just sent.
type Message struct {
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId" validate:"required"`
	SenderName string `json:"senderName" validate:"required"`
	SenderRole Role   `json:"senderRole" validate:"required,oneof=patient admin doctor"`
	Text       string `json:"text" validate:"required"`
}

func NewMessageNotification(msg Message, to Recipient) Notification {
	return Notification{
		UserID:   to.ID,
		Type:     TypeNewMessage,
		Title:    fmt.Sprintf("New message from %s", msg.SenderName),
		Message:  preview(msg.Text),
		Priority: PriorityMedium,
		RelatedTo: db.Fields{
			"chatId":     msg.ChatID,
			"senderId":   msg.SenderID,
			"senderRole": string(msg.SenderRole),
		},
		ActionURL: "/chat",
	}
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= maxPreview {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxPreview]) + "..."
}

// Booking is the appointment data quoted in lifecycle notifications.
type Booking struct {
	AppointmentID string
	UserID        string
	UserEmail     string
	UserName      string
	ServiceName   string
	Date          string
	TimeSlot      string
	Amount        decimal.Decimal
}

func (b Booking) base(t Type, p Priority) Notification {
	return Notification{
		UserID:    b.UserID,
		UserEmail: b.UserEmail,
		UserName:  b.UserName,
		Type:      t,
		Priority:  p,
		RelatedTo: db.Fields{"appointmentId": b.AppointmentID},
		ActionURL: "/appointments",
	}
}

func ApprovedNotification(b Booking) Notification {
	n := b.base(TypeAppointmentApproved, PriorityHigh)
	n.Title = "Appointment Confirmed!"
	n.Message = fmt.Sprintf("Your appointment for %s on %s at %s has been confirmed.", b.ServiceName, b.Date, b.TimeSlot)
	if b.Amount.IsPositive() {
		n.Message += fmt.Sprintf(" Amount: R%s", b.Amount.String())
	}
	return n
}

func DeclinedNotification(b Booking, reason string) Notification {
	n := b.base(TypeAppointmentDeclined, PriorityHigh)
	n.Title = "Appointment Not Approved"
	n.Message = fmt.Sprintf("Unfortunately, your appointment for %s on %s at %s could not be confirmed.", b.ServiceName, b.Date, b.TimeSlot)
	if reason != "" {
		n.Message += " Reason: " + reason
	}
	n.Message += " Please contact us for alternative dates."
	return n
}

func CancelledNotification(b Booking, reason string) Notification {
	n := b.base(TypeAppointmentCancel, PriorityMedium)
	n.Title = "Appointment Cancelled"
	n.Message = fmt.Sprintf("Your appointment for %s on %s at %s has been cancelled.", b.ServiceName, b.Date, b.TimeSlot)
	if reason != "" {
		n.Message += "\n\nReason: " + reason
	}
	return n
}

// Payment describes a settled payment.
type Payment struct {
	AppointmentID string
	InvoiceID     string
	Amount        decimal.Decimal
	TransactionID string
	ServiceName   string
}

func PaymentNotification(userID, email, name string, p Payment) Notification {
	related := db.Fields{}
	if p.AppointmentID != "" {
		related["appointmentId"] = p.AppointmentID
	}
	if p.InvoiceID != "" {
		related["invoiceId"] = p.InvoiceID
	}

	action := "/billing"
	switch {
	case p.InvoiceID != "":
		action = "/invoices/" + p.InvoiceID
	case p.AppointmentID != "":
		action = "/appointments/" + p.AppointmentID
	}

	return Notification{
		UserID:    userID,
		UserEmail: email,
		UserName:  name,
		Type:      TypePaymentReceived,
		Title:     "Payment Received",
		Message: fmt.Sprintf("We've received your payment of R%s for %s. Transaction ID: %s",
			p.Amount.StringFixed(2), p.ServiceName, p.TransactionID),
		Priority:  PriorityMedium,
		RelatedTo: related,
		ActionURL: action,
	}
}

func GeneralNotification(userID, title, message string, priority Priority, actionURL string) Notification {
	if priority == "" {
		priority = PriorityMedium
	}
	return Notification{
		UserID:    userID,
		Type:      TypeGeneral,
		Title:     title,
		Message:   message,
		Priority:  priority,
		ActionURL: actionURL,
	}
}
