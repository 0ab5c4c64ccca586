package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/dermaclinic-admin/internal/appointment"
	"github.com/hackgods/dermaclinic-admin/internal/db"
	"github.com/hackgods/dermaclinic-admin/internal/invoice"
)

type InvoiceService interface {
	List(ctx context.Context) ([]invoice.Invoice, error)
	Stats(ctx context.Context) (invoice.Stats, error)
	Create(ctx context.Context, req invoice.CreateRequest) (*invoice.Invoice, error)
	UpdateStatus(ctx context.Context, id string, status invoice.Status) (*invoice.Invoice, error)
}

func listInvoicesHandler(svc InvoiceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoices, err := svc.List(r.Context())
		if err != nil {
			handleInvoiceError(w, err)
			return
		}

		if s := r.URL.Query().Get("status"); s != "" {
			status, err := invoice.ParseStatus(s)
			if err != nil {
				handleInvoiceError(w, err)
				return
			}
			filtered := invoices[:0]
			for _, inv := range invoices {
				if inv.Status == status {
					filtered = append(filtered, inv)
				}
			}
			invoices = filtered
		}

		writeJSON(w, http.StatusOK, invoices)
	}
}

func invoiceStatsHandler(svc InvoiceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			handleInvoiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func createInvoiceHandler(svc InvoiceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req invoice.CreateRequest
		if !decodeBody(w, r, &req, false) {
			return
		}

		inv, err := svc.Create(r.Context(), req)
		if err != nil {
			handleInvoiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, inv)
	}
}

func updateInvoiceStatusHandler(svc InvoiceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateInvoiceStatusRequest
		if !decodeBody(w, r, &req, false) {
			return
		}

		inv, err := svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), invoice.Status(req.Status))
		if err != nil {
			handleInvoiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

func handleInvoiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invoice.ErrInvoiceNotFound):
		writeError(w, http.StatusNotFound, "invoice_not_found", err.Error())
	case errors.Is(err, invoice.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, invoice.ErrAppointmentNotPaid):
		writeError(w, http.StatusUnprocessableEntity, "appointment_not_paid", err.Error())
	case errors.Is(err, invoice.ErrNoAppointments):
		writeError(w, http.StatusBadRequest, "no_appointments", err.Error())
	case errors.Is(err, invoice.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, db.ErrVersionConflict):
		writeError(w, http.StatusConflict, "concurrent_update", "invoice was modified concurrently, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
