package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hackgods/dermaclinic-admin/internal/appointment"
)

var ErrAmbiguousMatch = errors.New("ambiguous match")

// MatchKind records which rule of the priority chain produced a match.
type MatchKind string

const (
	MatchNone      MatchKind = "none"
	MatchEmail     MatchKind = "email"
	MatchPatientID MatchKind = "patient_id"
)

// Match is the outcome of identity resolution for one appointment.
type Match struct {
	User      *appointment.UserRecord
	Kind      MatchKind
	Candidate string // candidate email extracted from the appointment
}

// Resolve finds the user an appointment belongs to. The candidate email is
// tried first (case-insensitive), then patientId against user ids. The first
// user in the supplied order wins. When strict is set, a candidate email shared
// by more than one user yields ErrAmbiguousMatch instead.
func Resolve(rec appointment.AppointmentRecord, users []appointment.UserRecord, strict bool) (Match, error) {
	m := Match{Kind: MatchNone, Candidate: rec.CandidateEmail()}

	if m.Candidate != "" {
		idx := -1
		dupes := 0
		for i := range users {
			if users[i].Email == "" || !strings.EqualFold(users[i].Email, m.Candidate) {
				continue
			}
			if idx < 0 {
				idx = i
			}
			dupes++
			if !strict {
				break
			}
		}
		if strict && dupes > 1 {
			return m, fmt.Errorf("%w: %d users share email %s", ErrAmbiguousMatch, dupes, m.Candidate)
		}
		if idx >= 0 {
			m.User = &users[idx]
			m.Kind = MatchEmail
			return m, nil
		}
	}

	if rec.PatientID != "" {
		for i := range users {
			if users[i].ID == rec.PatientID {
				m.User = &users[i]
				m.Kind = MatchPatientID
				return m, nil
			}
		}
	}

	return m, nil
}
