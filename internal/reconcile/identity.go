package reconcile

import (
	"fmt"

	"github.com/hackgods/dermaclinic-admin/internal/appointment"
	"github.com/hackgods/dermaclinic-admin/internal/db"
)

// Plan is the computed outcome for one record before any write happens.
type Plan struct {
	Patch   db.Fields
	Status  Status
	Message string
}

// PlanIdentity computes the minimal userName/userEmail/userPhone patch for an
// incomplete appointment given its resolved user, if any.
func PlanIdentity(rec appointment.AppointmentRecord, m Match) Plan {
	patch := db.Fields{}

	if u := m.User; u != nil {
		if rec.UserName == "" {
			name := u.Name()
			if name == "" {
				name = appointment.LocalPart(u.Email)
			}
			if name == "" {
				name = appointment.UnknownPatientName
			}
			setChanged(patch, rec, appointment.FieldUserName, name)
		}
		if rec.UserEmail == "" && u.Email != "" {
			setChanged(patch, rec, appointment.FieldUserEmail, u.Email)
		}
		if rec.UserPhone == "" && u.Phone != "" {
			setChanged(patch, rec, appointment.FieldUserPhone, u.Phone)
		}

		if len(patch) == 0 {
			return Plan{Status: StatusSkipped, Message: "No changes needed"}
		}
		who := u.Email
		if who == "" {
			who = u.ID
		}
		return Plan{
			Patch:   patch,
			Status:  StatusSuccess,
			Message: fmt.Sprintf("Updated with data from user %s", who),
		}
	}

	// no user: fall back to the email carried by the appointment itself
	if m.Candidate != "" {
		if rec.UserName == "" {
			setChanged(patch, rec, appointment.FieldUserName, appointment.LocalPart(m.Candidate))
		}
		if rec.UserEmail == "" {
			setChanged(patch, rec, appointment.FieldUserEmail, m.Candidate)
		}
	}

	if len(patch) == 0 {
		candidate := m.Candidate
		if candidate == "" {
			candidate = "N/A"
		}
		return Plan{
			Status:  StatusFailed,
			Message: fmt.Sprintf("No matching user found for email: %s", candidate),
		}
	}
	return Plan{
		Patch:   patch,
		Status:  StatusSuccess,
		Message: "Updated with email-based fallback (no user found in collection)",
	}
}

// setChanged adds key to patch unless the stored value is already identical,
// which keeps re-runs free of writes.
func setChanged(patch db.Fields, rec appointment.AppointmentRecord, key, value string) {
	if value == "" || rec.StoredString(key) == value {
		return
	}
	patch[key] = value
}
