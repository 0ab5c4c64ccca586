package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/dermaclinic-admin/internal/appointment"
	"github.com/hackgods/dermaclinic-admin/internal/db"
	"github.com/hackgods/dermaclinic-admin/internal/metrics"
	redisclient "github.com/hackgods/dermaclinic-admin/internal/redis"
)

// Policy selects which fields a run backfills.
type Policy string

const (
	PolicyIdentity Policy = "identity"
	PolicyPricing  Policy = "pricing"
)

var (
	ErrUnknownPolicy = errors.New("unknown reconciliation policy")
	ErrRunInProgress = errors.New("another reconciliation run is in progress")
	ErrFetchFailed   = errors.New("bulk fetch failed")
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyIdentity, PolicyPricing:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Source supplies the snapshots a run works on and applies single-record
// patches.
type Source interface {
	ListUsers(ctx context.Context) ([]appointment.UserRecord, error)
	ListAppointments(ctx context.Context) ([]appointment.AppointmentRecord, error)
	PatchAppointment(ctx context.Context, rec appointment.AppointmentRecord, patch db.Fields) error
}

// RunRecorder stores the audit summary of finished runs.
type RunRecorder interface {
	Insert(ctx context.Context, collection string, data db.Fields) (string, error)
}

type Options struct {
	Pricing         PricingTable
	RejectAmbiguous bool
}

type RunOptions struct {
	DryRun bool
}

type Engine struct {
	src     Source
	runs    RunRecorder
	locker  redisclient.Locker
	metrics *metrics.ReconcileMetrics
	log     zerolog.Logger
	opts    Options
	now     func() time.Time
}

func NewEngine(src Source, runs RunRecorder, locker redisclient.Locker, m *metrics.ReconcileMetrics, log zerolog.Logger, opts Options) *Engine {
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}
	if opts.Pricing.Services == nil {
		opts.Pricing = DefaultPricing()
	}
	return &Engine{
		src:     src,
		runs:    runs,
		locker:  locker,
		metrics: m,
		log:     log.With().Str("component", "reconcile").Logger(),
		opts:    opts,
		now:     time.Now,
	}
}

// Run executes one full reconciliation pass. Runs of any policy exclude each
// other because both patch the appointments collection. Only a failed bulk
// fetch or a held lock returns an error; per-record problems end up in the
// report. Once started, a run is not cancelled by ctx and processes every
// fetched record.
func (e *Engine) Run(ctx context.Context, policy Policy, ro RunOptions) (*Report, error) {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	var report *Report
	err := e.locker.WithLock(ctx, db.CollectionAppointments, func(lockCtx context.Context) error {
		var err error
		report, err = e.run(lockCtx, policy, ro)
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			e.metrics.ObserveRun(string(policy), "locked", 0)
			return nil, ErrRunInProgress
		}
		if report != nil && errors.Is(err, redisclient.ErrLockRelease) {
			e.log.Error().Err(err).Str("run_id", report.RunID.String()).Msg("run finished but lock was not released")
			return report, nil
		}
		return nil, err
	}
	return report, nil
}

func (e *Engine) run(ctx context.Context, policy Policy, ro RunOptions) (*Report, error) {
	report := NewReport(policy, ro.DryRun, e.now())
	log := e.log.With().Str("run_id", report.RunID.String()).Str("policy", string(policy)).Logger()
	log.Info().Bool("dry_run", ro.DryRun).Msg("reconciliation run starting")

	var users []appointment.UserRecord
	if policy == PolicyIdentity {
		var err error
		users, err = e.src.ListUsers(ctx)
		if err != nil {
			e.metrics.ObserveRun(string(policy), "fetch_failed", 0)
			return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
		log.Info().Int("users", len(users)).Msg("loaded users")
	}

	appts, err := e.src.ListAppointments(ctx)
	if err != nil {
		e.metrics.ObserveRun(string(policy), "fetch_failed", 0)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	log.Info().Int("appointments", len(appts)).Msg("loaded appointments")

	for _, rec := range appts {
		var plan Plan
		switch policy {
		case PolicyIdentity:
			plan = e.planIdentity(rec, users)
		case PolicyPricing:
			plan = PlanPricing(rec, e.opts.Pricing)
		}

		res := e.apply(ctx, rec, plan, ro.DryRun)
		report.Add(res)
		e.metrics.ObserveRecord(string(policy), string(res.Status))
		log.Debug().
			Str("appointment_id", res.AppointmentID).
			Str("status", string(res.Status)).
			Msg(res.Message)
	}

	report.FinishedAt = e.now()
	e.recordRun(ctx, report)
	e.metrics.ObserveRun(string(policy), "completed", report.Duration().Seconds())

	log.Info().
		Int("updated", report.Updated).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Dur("duration", report.Duration()).
		Msg("reconciliation run complete")

	return report, nil
}

func (e *Engine) planIdentity(rec appointment.AppointmentRecord, users []appointment.UserRecord) Plan {
	if rec.IdentityComplete() {
		return Plan{Status: StatusSkipped, Message: "Already has complete user data"}
	}
	m, err := Resolve(rec, users, e.opts.RejectAmbiguous)
	if err != nil {
		return Plan{Status: StatusFailed, Message: err.Error()}
	}
	return PlanIdentity(rec, m)
}

// apply turns a plan into a result, issuing the single-record write for
// non-empty patches.
func (e *Engine) apply(ctx context.Context, rec appointment.AppointmentRecord, plan Plan, dryRun bool) Result {
	res := Result{
		AppointmentID: rec.ID,
		Status:        plan.Status,
		Message:       plan.Message,
		Before:        rec.Raw,
		After:         rec.Raw,
	}
	if plan.Status != StatusSuccess {
		return res
	}

	if dryRun {
		res.Message = "Would apply: " + plan.Message
	} else if err := e.src.PatchAppointment(ctx, rec, plan.Patch); err != nil {
		res.Status = StatusFailed
		res.Message = fmt.Sprintf("Error: %v", err)
		return res
	}

	res.Patch = plan.Patch
	res.After = rec.Raw.Merge(plan.Patch)
	return res
}

func (e *Engine) recordRun(ctx context.Context, report *Report) {
	if e.runs == nil {
		return
	}
	if _, err := e.runs.Insert(ctx, db.CollectionRuns, report.Summary()); err != nil {
		e.log.Warn().Err(err).Str("run_id", report.RunID.String()).Msg("failed to record run summary")
	}
}
