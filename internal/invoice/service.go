package invoice

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hackgods/dermaclinic-admin/internal/appointment"
	"github.com/hackgods/dermaclinic-admin/internal/db"
	"github.com/hackgods/dermaclinic-admin/internal/notify"
)

// Store contains the store operations needed by the invoice service.
type Store interface {
	FetchAll(ctx context.Context, collection string) ([]db.Document, error)
	Get(ctx context.Context, collection, id string) (*db.Document, error)
	Insert(ctx context.Context, collection string, data db.Fields) (string, error)
	UpdateFields(ctx context.Context, collection, id string, patch db.Fields, expectedVersion int64) error
}

// PaymentNotifier is told when an invoice is settled.
type PaymentNotifier interface {
	NotifyPayment(ctx context.Context, userID, email, name string, p notify.Payment) (string, error)
}

type Options struct {
	TaxRate   decimal.Decimal
	DueInDays int
}

type Service struct {
	store    Store
	notifier PaymentNotifier
	opts     Options
	log      zerolog.Logger
	now      func() time.Time
	intn     func(n int) int
}

func NewService(store Store, notifier PaymentNotifier, opts Options, log zerolog.Logger) *Service {
	if opts.DueInDays <= 0 {
		opts.DueInDays = 30
	}
	return &Service{
		store:    store,
		notifier: notifier,
		opts:     opts,
		log:      log.With().Str("component", "invoice").Logger(),
		now:      time.Now,
		intn:     rand.IntN,
	}
}

// CreateRequest bills a patient for one or more paid appointments.
type CreateRequest struct {
	PatientID      string   `json:"patientId" validate:"required"`
	AppointmentIDs []string `json:"appointmentIds" validate:"required,min=1,dive,required"`
	Notes          string   `json:"notes"`
}

func (s *Service) List(ctx context.Context) ([]Invoice, error) {
	docs, err := s.store.FetchAll(ctx, db.CollectionInvoices)
	if err != nil {
		return nil, fmt.Errorf("fetch invoices: %w", err)
	}
	now := s.now()
	out := make([]Invoice, 0, len(docs))
	for _, d := range docs {
		out = append(out, Normalize(d, s.opts.TaxRate, now))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Invoice, error) {
	doc, err := s.store.Get(ctx, db.CollectionInvoices, id)
	if err != nil {
		if errors.Is(err, db.ErrDocumentNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("load invoice: %w", err)
	}
	inv := Normalize(*doc, s.opts.TaxRate, s.now())
	return &inv, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	invoices, err := s.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, inv := range invoices {
		st.add(inv)
	}
	return st, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Invoice, error) {
	if len(req.AppointmentIDs) == 0 {
		return nil, ErrNoAppointments
	}

	patientDoc, err := s.store.Get(ctx, db.CollectionUsers, req.PatientID)
	if err != nil {
		if errors.Is(err, db.ErrDocumentNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	patient := appointment.DecodeUser(*patientDoc)

	items := make([]Item, 0, len(req.AppointmentIDs))
	subtotal := decimal.Zero
	for i, id := range req.AppointmentIDs {
		doc, err := s.store.Get(ctx, db.CollectionAppointments, id)
		if err != nil {
			if errors.Is(err, db.ErrDocumentNotFound) {
				return nil, fmt.Errorf("%w: %s", appointment.ErrAppointmentNotFound, id)
			}
			return nil, fmt.Errorf("load appointment %s: %w", id, err)
		}
		rec := appointment.DecodeAppointment(*doc)
		if !rec.IsPaid() {
			return nil, fmt.Errorf("%w: %s", ErrAppointmentNotPaid, id)
		}

		description := rec.ServiceName
		if description == "" {
			description = "Service"
		}
		items = append(items, Item{
			ID:          strconv.Itoa(i + 1),
			Description: description,
			Quantity:    one,
			UnitPrice:   rec.Amount,
			Total:       rec.Amount,
		})
		subtotal = subtotal.Add(rec.Amount)
	}

	now := s.now().UTC()
	tax := subtotal.Mul(s.opts.TaxRate).Round(2)
	inv := Invoice{
		InvoiceNumber:  s.nextNumber(now),
		PatientID:      patient.ID,
		PatientName:    patientName(patient),
		PatientEmail:   patient.Email,
		AppointmentIDs: req.AppointmentIDs,
		Items:          items,
		Subtotal:       subtotal,
		Tax:            tax,
		Total:          subtotal.Add(tax),
		Status:         StatusDraft,
		IssueDate:      now.Format(dateLayout),
		DueDate:        now.AddDate(0, 0, s.opts.DueInDays).Format(dateLayout),
		Notes:          strings.TrimSpace(req.Notes),
	}

	id, err := s.store.Insert(ctx, db.CollectionInvoices, toFields(inv))
	if err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}
	inv.ID = id

	s.log.Info().
		Str("invoice_id", id).
		Str("number", inv.InvoiceNumber).
		Str("patient_id", inv.PatientID).
		Str("total", inv.Total.StringFixed(2)).
		Msg("invoice created")
	return &inv, nil
}

// UpdateStatus moves an invoice to status. Marking an invoice paid stamps the
// paid date and notifies the patient; a failed notification does not undo the
// status change.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Invoice, error) {
	status, err := ParseStatus(string(status))
	if err != nil {
		return nil, err
	}

	doc, err := s.store.Get(ctx, db.CollectionInvoices, id)
	if err != nil {
		if errors.Is(err, db.ErrDocumentNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("load invoice: %w", err)
	}

	patch := db.Fields{"status": string(status)}
	if status == StatusPaid {
		patch["paidDate"] = s.now().UTC().Format(dateLayout)
	}
	if err := s.store.UpdateFields(ctx, db.CollectionInvoices, id, patch, doc.Version); err != nil {
		return nil, fmt.Errorf("update invoice status: %w", err)
	}

	updated := *doc
	updated.Data = doc.Data.Merge(patch)
	inv := Normalize(updated, s.opts.TaxRate, s.now())

	if status == StatusPaid {
		s.notifyPaid(ctx, inv)
	}
	return &inv, nil
}

func (s *Service) notifyPaid(ctx context.Context, inv Invoice) {
	if s.notifier == nil || inv.PatientID == "" {
		return
	}
	descriptions := make([]string, 0, len(inv.Items))
	for _, it := range inv.Items {
		descriptions = append(descriptions, it.Description)
	}
	payment := notify.Payment{
		InvoiceID:     inv.ID,
		Amount:        inv.Total,
		TransactionID: inv.InvoiceNumber,
		ServiceName:   strings.Join(descriptions, ", "),
	}
	if _, err := s.notifier.NotifyPayment(ctx, inv.PatientID, inv.PatientEmail, inv.PatientName, payment); err != nil {
		s.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("payment notification failed")
	}
}

// nextNumber formats INV-YYYYMM-NNNN with a random four digit suffix.
func (s *Service) nextNumber(now time.Time) string {
	return fmt.Sprintf("INV-%04d%02d-%04d", now.Year(), int(now.Month()), s.intn(10000))
}

func patientName(u appointment.UserRecord) string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Email != "":
		return u.Email
	default:
		return appointment.UnknownPatientName
	}
}

func toFields(inv Invoice) db.Fields {
	ids := make([]any, 0, len(inv.AppointmentIDs))
	for _, id := range inv.AppointmentIDs {
		ids = append(ids, id)
	}
	f := db.Fields{
		"invoiceNumber":  inv.InvoiceNumber,
		"patientId":      inv.PatientID,
		"patientName":    inv.PatientName,
		"patientEmail":   inv.PatientEmail,
		"appointmentIds": ids,
		"items":          encodeItems(inv.Items),
		"subtotal":       jsonNumber(inv.Subtotal),
		"tax":            jsonNumber(inv.Tax),
		"total":          jsonNumber(inv.Total),
		"status":         string(inv.Status),
		"issueDate":      inv.IssueDate,
		"dueDate":        inv.DueDate,
	}
	if inv.Notes != "" {
		f["notes"] = inv.Notes
	}
	return f
}
