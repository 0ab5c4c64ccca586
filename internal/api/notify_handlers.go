package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/dermaclinic-admin/internal/appointment"
	"github.com/hackgods/dermaclinic-admin/internal/notify"
)

type Notifier interface {
	NotifyMessage(ctx context.Context, msg notify.Message) (notify.Outcome, error)
	NotifyAppointment(ctx context.Context, appointmentID string, kind notify.Kind, reason string) (string, error)
	Send(ctx context.Context, n notify.Notification) (string, error)
}

func chatNotificationHandler(n Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg notify.Message
		if !decodeBody(w, r, &msg, false) {
			return
		}
		msg.ChatID = chi.URLParam(r, "id")

		out, err := n.NotifyMessage(r.Context(), msg)
		if err != nil {
			handleNotifyError(w, err)
			return
		}

		status := http.StatusCreated
		if out.Skipped != "" {
			status = http.StatusOK
		}
		writeJSON(w, status, out)
	}
}

func appointmentNotificationHandler(n Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := notify.ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			handleNotifyError(w, err)
			return
		}

		var req AppointmentNotificationRequest
		if !decodeBody(w, r, &req, true) {
			return
		}

		id, err := n.NotifyAppointment(r.Context(), chi.URLParam(r, "id"), kind, req.Reason)
		if err != nil {
			handleNotifyError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, NotificationResponse{ID: id})
	}
}

func generalNotificationHandler(n Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GeneralNotificationRequest
		if !decodeBody(w, r, &req, false) {
			return
		}

		id, err := n.Send(r.Context(), notify.GeneralNotification(
			req.UserID, req.Title, req.Message, notify.Priority(req.Priority), req.ActionURL,
		))
		if err != nil {
			handleNotifyError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, NotificationResponse{ID: id})
	}
}

func handleNotifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, notify.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, "unknown_notification_kind", err.Error())
	case errors.Is(err, notify.ErrNoRecipient):
		writeError(w, http.StatusUnprocessableEntity, "no_recipient", err.Error())
	case errors.Is(err, notify.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_notification", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
