package reconcile

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/dermaclinic-admin/internal/db"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result is the outcome for one appointment in a run.
type Result struct {
	AppointmentID string    `json:"appointmentId"`
	Status        Status    `json:"status"`
	Message       string    `json:"message"`
	Patch         db.Fields `json:"patch,omitempty"`
	Before        db.Fields `json:"before"`
	After         db.Fields `json:"after"`
}

// Change is one field that a successful result modified.
type Change struct {
	Field  string
	Before string
	After  string
}

// Changes lists patched fields in name order.
func (r Result) Changes() []Change {
	keys := make([]string, 0, len(r.Patch))
	for k := range r.Patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Change, 0, len(keys))
	for _, k := range keys {
		out = append(out, Change{Field: k, Before: r.Before.String(k), After: r.After.String(k)})
	}
	return out
}

// Report aggregates the results of one run. Results keep fetch order.
type Report struct {
	RunID      uuid.UUID `json:"runId"`
	Policy     Policy    `json:"policy"`
	DryRun     bool      `json:"dryRun"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Results    []Result  `json:"results"`
}

func NewReport(policy Policy, dryRun bool, startedAt time.Time) *Report {
	return &Report{
		RunID:     uuid.New(),
		Policy:    policy,
		DryRun:    dryRun,
		StartedAt: startedAt,
		Results:   []Result{},
	}
}

func (r *Report) Add(res Result) {
	switch res.Status {
	case StatusSuccess:
		r.Updated++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
	r.Results = append(r.Results, res)
}

func (r *Report) Total() int {
	return len(r.Results)
}

func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary is the run audit document stored after each run.
func (r *Report) Summary() db.Fields {
	return db.Fields{
		"runId":      r.RunID.String(),
		"policy":     string(r.Policy),
		"dryRun":     r.DryRun,
		"startedAt":  r.StartedAt.UTC().Format(time.RFC3339),
		"finishedAt": r.FinishedAt.UTC().Format(time.RFC3339),
		"total":      r.Total(),
		"updated":    r.Updated,
		"skipped":    r.Skipped,
		"failed":     r.Failed,
	}
}

// WriteText renders the operator report: totals first, then one line per
// record with before/after values for updates.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "RECONCILIATION REPORT (%s)", r.Policy)
	if r.DryRun {
		fmt.Fprint(&b, " [dry run]")
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "Run: %s\n", r.RunID)
	fmt.Fprintf(&b, "Duration: %s\n", r.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "Processed: %d\n", r.Total())
	fmt.Fprintf(&b, "  Updated: %d\n", r.Updated)
	fmt.Fprintf(&b, "  Skipped: %d\n", r.Skipped)
	fmt.Fprintf(&b, "  Failed:  %d\n", r.Failed)
	fmt.Fprintln(&b, line)

	for _, res := range r.Results {
		fmt.Fprintf(&b, "%-8s %-7s %s\n", shortID(res.AppointmentID), res.Status, res.Message)
		if res.Status != StatusSuccess {
			continue
		}
		for _, c := range res.Changes() {
			fmt.Fprintf(&b, "         %s: %q -> %q\n", c.Field, c.Before, c.After)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
