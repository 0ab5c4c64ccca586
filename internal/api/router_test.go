package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hackgods/dermaclinic-admin/internal/appointment"
	"github.com/hackgods/dermaclinic-admin/internal/db"
	"github.com/hackgods/dermaclinic-admin/internal/invoice"
	"github.com/hackgods/dermaclinic-admin/internal/metrics"
	"github.com/hackgods/dermaclinic-admin/internal/notify"
	"github.com/hackgods/dermaclinic-admin/internal/reconcile"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubReconciler struct{ err error }

func (s stubReconciler) Run(context.Context, reconcile.Policy, reconcile.RunOptions) (*reconcile.Report, error) {
	return nil, s.err
}

type testEnv struct {
	store  *db.MemoryStore
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := db.NewMemoryStore()
	store.Put(db.CollectionUsers, "u1", db.Fields{"email": "j@x.com", "displayName": "Jane", "phoneNumber": "555-1"})
	store.Put(db.CollectionAppointments, "a1", db.Fields{
		"userId": "u1", "patientEmail": "j@x.com", "userName": "Patient",
		"serviceName": "PRP Therapy", "amount": 3200, "serviceCategory": "Cosmetic", "paymentStatus": "paid",
		"appointmentDate": "2026-11-02", "timeSlot": "10:00",
	})
	store.Put(db.CollectionChats, "c1", db.Fields{"patientId": "u1"})

	reg := prometheus.NewRegistry()
	log := zerolog.Nop()
	engine := reconcile.NewEngine(appointment.NewRepository(store), store, nil,
		metrics.NewReconcileMetrics(reg), log, reconcile.Options{})
	notifier := notify.NewService(store, metrics.NewNotifyMetrics(reg), log)
	invoices := invoice.NewService(store, notifier, invoice.Options{TaxRate: decimal.RequireFromString("0.15")}, log)

	return &testEnv{
		store: store,
		router: NewRouter(RouterConfig{
			Reconciler:  engine,
			Runs:        store,
			Notifier:    notifier,
			Invoices:    invoices,
			Postgres:    stubPinger{},
			Gatherer:    reg,
			Logger:      log,
			CORSOrigins: []string{"*"},
			Env:         "test",
		}),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ReadinessResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "disabled", resp.Dependencies["redis"])
}

func TestReadiness_Failures(t *testing.T) {
	tests := []struct {
		name       string
		pg, redis  Pinger
		wantCode   int
		wantStatus string
	}{
		{"postgres down", stubPinger{err: errors.New("down")}, stubPinger{}, http.StatusServiceUnavailable, "error"},
		{"redis down", stubPinger{}, stubPinger{err: errors.New("down")}, http.StatusOK, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pg, tt.redis, "test", "")
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, decode[ReadinessResponse](t, rec).Status)
		})
	}
}

func TestRunReconciliation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/reconciliations/identity?dry_run=true", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[reconcile.Report](t, rec)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Updated)

	stored, err := env.store.Get(context.Background(), db.CollectionAppointments, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Patient", stored.Data.String("userName"))

	rec = env.do(t, http.MethodPost, "/reconciliations/identity", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stored, err = env.store.Get(context.Background(), db.CollectionAppointments, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Jane", stored.Data.String("userName"))

	rec = env.do(t, http.MethodGet, "/reconciliations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]RunSummary](t, rec)
	require.Len(t, runs, 2)
	assert.Equal(t, false, runs[0].Data["dryRun"])
	assert.Equal(t, true, runs[1].Data["dryRun"])

	rec = env.do(t, http.MethodGet, "/metrics", "")
	assert.Contains(t, rec.Body.String(), "dermaclinic_reconcile_runs_total")
}

func TestRunReconciliation_BadInput(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/reconciliations/refunds", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_policy", decode[ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/reconciliations/pricing?dry_run=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunReconciliation_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{reconcile.ErrRunInProgress, http.StatusConflict},
		{reconcile.ErrFetchFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		router := NewRouter(RouterConfig{Reconciler: stubReconciler{err: tt.err}, Logger: zerolog.Nop(), Gatherer: prometheus.NewRegistry()})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconciliations/pricing", nil))
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
	}
}

func TestExportReconciliation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/reconciliations/pricing/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reconciliation-pricing-")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "skipped", rows[1][1])
}

func TestChatNotification(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/chats/c1/notifications",
		`{"senderId":"admin","senderName":"Clinic","senderRole":"admin","text":"Your results are in"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode[notify.Outcome](t, rec)
	assert.Equal(t, "u1", out.Recipient.ID)

	rec = env.do(t, http.MethodPost, "/chats/nope/notifications",
		`{"senderId":"admin","senderName":"Clinic","senderRole":"admin","text":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notify.SkipChatNotFound, decode[notify.Outcome](t, rec).Skipped)

	rec = env.do(t, http.MethodPost, "/chats/c1/notifications", `{"senderId":"admin","senderRole":"nurse"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation_failed", resp.Error)
	assert.Equal(t, "oneof", resp.Fields["senderRole"])
	assert.Equal(t, "required", resp.Fields["text"])
}

func TestAppointmentNotification(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/notifications/appointments/a1/approved", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[NotificationResponse](t, rec).ID)

	rec = env.do(t, http.MethodPost, "/notifications/appointments/a1/declined", `{"reason":"fully booked"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/notifications/appointments/missing/approved", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/notifications/appointments/a1/rescheduled", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeneralNotification(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/notifications", `{"userId":"u1","title":"Closed","message":"Closed Friday","priority":"urgent"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/notifications", `{"userId":"u1","title":"Closed","message":"Closed Friday"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	docs, err := env.store.FetchAll(context.Background(), db.CollectionNotifications)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "medium", docs[0].Data.String("priority"))
}

func TestInvoices(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/invoices", `{"patientId":"u1","appointmentIds":["a1"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[invoice.Invoice](t, rec)
	assert.Equal(t, invoice.StatusDraft, created.Status)
	assert.True(t, decimal.NewFromInt(3680).Equal(created.Total))

	rec = env.do(t, http.MethodPatch, "/invoices/"+created.ID+"/status", `{"status":"paid"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, invoice.StatusPaid, decode[invoice.Invoice](t, rec).Status)

	rec = env.do(t, http.MethodGet, "/invoices?status=paid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]invoice.Invoice](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/invoices/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[invoice.Stats](t, rec)
	assert.Equal(t, 1, stats.Paid)

	// marking paid notified the patient
	docs, err := env.store.FetchAll(context.Background(), db.CollectionNotifications)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "payment_received", docs[0].Data.String("type"))
}

func TestInvoices_Errors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/invoices", `{"patientId":"u1","appointmentIds":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/invoices", `{"patientId":"ghost","appointmentIds":["a1"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPatch, "/invoices/missing/status", `{"status":"Sent"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/invoices", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_body", decode[ErrorResponse](t, rec).Error)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
