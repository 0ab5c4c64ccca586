package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/dermaclinic-admin/internal/db"
	"github.com/hackgods/dermaclinic-admin/internal/reconcile"
)

// Reconciler runs a reconciliation pass.
type Reconciler interface {
	Run(ctx context.Context, policy reconcile.Policy, ro reconcile.RunOptions) (*reconcile.Report, error)
}

// RunLister reads the run audit trail.
type RunLister interface {
	FetchAll(ctx context.Context, collection string) ([]db.Document, error)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func runReconciliationHandler(rc Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ok := runFromRequest(w, r, rc)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func exportReconciliationHandler(rc Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ok := runFromRequest(w, r, rc)
		if !ok {
			return
		}

		var buf bytes.Buffer
		if err := report.WriteXLSX(&buf); err != nil {
			writeError(w, http.StatusInternalServerError, "export_failed", err.Error())
			return
		}

		filename := fmt.Sprintf("reconciliation-%s-%s.xlsx", report.Policy, report.StartedAt.UTC().Format("20060102-150405"))
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

func runFromRequest(w http.ResponseWriter, r *http.Request, rc Reconciler) (*reconcile.Report, bool) {
	policy, err := reconcile.ParsePolicy(chi.URLParam(r, "policy"))
	if err != nil {
		handleReconcileError(w, err)
		return nil, false
	}

	var ro reconcile.RunOptions
	if v := r.URL.Query().Get("dry_run"); v != "" {
		ro.DryRun, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_dry_run", "dry_run must be a boolean")
			return nil, false
		}
	}

	report, err := rc.Run(r.Context(), policy, ro)
	if err != nil {
		handleReconcileError(w, err)
		return nil, false
	}
	return report, true
}

func listRunsHandler(runs RunLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := runs.FetchAll(r.Context(), db.CollectionRuns)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		// newest first
		out := make([]RunSummary, 0, len(docs))
		for i := len(docs) - 1; i >= 0; i-- {
			out = append(out, RunSummary{ID: docs[i].ID, Data: docs[i].Data})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleReconcileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reconcile.ErrUnknownPolicy):
		writeError(w, http.StatusBadRequest, "unknown_policy", err.Error())
	case errors.Is(err, reconcile.ErrRunInProgress):
		writeError(w, http.StatusConflict, "run_in_progress", "another reconciliation run is in progress, please retry shortly")
	case errors.Is(err, reconcile.ErrFetchFailed):
		writeError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
