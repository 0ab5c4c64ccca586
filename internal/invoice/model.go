package invoice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrPatientNotFound    = errors.New("patient not found")
	ErrNoAppointments     = errors.New("at least one paid appointment is required")
	ErrAppointmentNotPaid = errors.New("appointment is not paid")
	ErrInvalidStatus      = errors.New("invalid invoice status")
)

type Status string

const (
	StatusDraft     Status = "Draft"
	StatusSent      Status = "Sent"
	StatusPaid      Status = "Paid"
	StatusOverdue   Status = "Overdue"
	StatusCancelled Status = "Cancelled"
)

// ParseStatus accepts any casing. "pending" is what the booking app writes
// for an invoice that has been sent.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft":
		return StatusDraft, nil
	case "sent", "pending":
		return StatusSent, nil
	case "paid":
		return StatusPaid, nil
	case "overdue":
		return StatusOverdue, nil
	case "cancelled":
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

type Item struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

type Invoice struct {
	ID             string          `json:"id"`
	InvoiceNumber  string          `json:"invoiceNumber"`
	PatientID      string          `json:"patientId"`
	PatientName    string          `json:"patientName"`
	PatientEmail   string          `json:"patientEmail"`
	AppointmentIDs []string        `json:"appointmentIds,omitempty"`
	Items          []Item          `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	Status         Status          `json:"status"`
	IssueDate      string          `json:"issueDate,omitempty"`
	DueDate        string          `json:"dueDate,omitempty"`
	PaidDate       string          `json:"paidDate,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// Stats summarises the invoice book.
type Stats struct {
	Total     int             `json:"total"`
	Draft     int             `json:"draft"`
	Sent      int             `json:"sent"`
	Paid      int             `json:"paid"`
	Overdue   int             `json:"overdue"`
	Cancelled int             `json:"cancelled"`
	Revenue   decimal.Decimal `json:"revenue"`
}

func (s *Stats) add(inv Invoice) {
	s.Total++
	switch inv.Status {
	case StatusDraft:
		s.Draft++
	case StatusSent:
		s.Sent++
	case StatusPaid:
		s.Paid++
		s.Revenue = s.Revenue.Add(inv.Total)
	case StatusOverdue:
		s.Overdue++
	case StatusCancelled:
		s.Cancelled++
	}
}
