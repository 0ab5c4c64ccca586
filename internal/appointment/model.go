package appointment

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hackgods/dermaclinic-admin/internal/db"
)

// Stored values that older booking clients wrote instead of leaving a field
// empty. They are only recognised while decoding.
const (
	placeholderName        = "Patient"
	placeholderUnknownName = "Unknown Patient"
	placeholderPhone       = "N/A"
)

// UnknownPatientName is written when a matched user carries no usable name.
const UnknownPatientName = placeholderUnknownName

// Document field names.
const (
	FieldUserID          = "userId"
	FieldUserName        = "userName"
	FieldUserEmail       = "userEmail"
	FieldUserPhone       = "userPhone"
	FieldPatientEmail    = "patientEmail"
	FieldEmail           = "email"
	FieldPatientID       = "patientId"
	FieldAmount          = "amount"
	FieldServiceCategory = "serviceCategory"
	FieldServiceName     = "serviceName"
	FieldType            = "type"
	FieldPaymentStatus   = "paymentStatus"
	FieldAppointmentDate = "appointmentDate"
	FieldTimeSlot        = "timeSlot"
)

// AppointmentRecord is a decoded appointment document. Empty strings mean the
// field is absent; placeholder values are already mapped to empty.
type AppointmentRecord struct {
	ID      string
	Version int64

	UserID       string
	UserEmail    string
	PatientEmail string
	Email        string
	PatientID    string

	UserName  string
	UserPhone string

	Amount          decimal.Decimal
	ServiceCategory string
	ServiceName     string
	Type            string
	PaymentStatus   string

	// Raw is the stored body as fetched.
	Raw db.Fields

	amountSet bool
}

// UserRecord is a decoded user document. Never written by this module.
type UserRecord struct {
	ID          string
	Email       string
	DisplayName string
	FirstName   string
	LastName    string
	Phone       string
	Role        string
	Raw         db.Fields
}

func DecodeAppointment(doc db.Document) AppointmentRecord {
	f := doc.Data
	rec := AppointmentRecord{
		ID:              doc.ID,
		Version:         doc.Version,
		UserID:          text(f, FieldUserID),
		UserEmail:       text(f, FieldUserEmail),
		PatientEmail:    text(f, FieldPatientEmail),
		Email:           text(f, FieldEmail),
		PatientID:       text(f, FieldPatientID),
		UserName:        text(f, FieldUserName),
		UserPhone:       text(f, FieldUserPhone),
		ServiceCategory: text(f, FieldServiceCategory),
		ServiceName:     text(f, FieldServiceName),
		Type:            text(f, FieldType),
		PaymentStatus:   text(f, FieldPaymentStatus),
		Raw:             f,
	}
	if rec.UserName == placeholderName || rec.UserName == placeholderUnknownName {
		rec.UserName = ""
	}
	if rec.UserPhone == placeholderPhone {
		rec.UserPhone = ""
	}
	if amount, ok := f.Decimal(FieldAmount); ok {
		rec.Amount = amount
		rec.amountSet = !amount.IsZero()
	} else {
		// unparseable text like "R 3,200" still counts as a stored amount
		rec.amountSet = text(f, FieldAmount) != "" || f.Bool(FieldAmount) ||
			f.Map(FieldAmount) != nil || f.Slice(FieldAmount) != nil
	}
	return rec
}

func DecodeUser(doc db.Document) UserRecord {
	f := doc.Data
	u := UserRecord{
		ID:          doc.ID,
		Email:       text(f, "email"),
		DisplayName: text(f, "displayName"),
		FirstName:   text(f, "firstName"),
		LastName:    text(f, "lastName"),
		Phone:       text(f, "phoneNumber"),
		Role:        text(f, "role"),
		Raw:         f,
	}
	if u.Phone == "" {
		u.Phone = text(f, "phone")
	}
	return u
}

// IdentityComplete reports whether name, email and phone are all populated.
func (a AppointmentRecord) IdentityComplete() bool {
	return a.UserName != "" && a.UserEmail != "" && a.UserPhone != ""
}

// Priced reports whether an amount is stored. Absent, null, empty and zero
// values are unpriced; anything else is left alone even if it is not numeric.
func (a AppointmentRecord) Priced() bool {
	return a.amountSet
}

// PricingComplete reports whether both amount and category are populated.
func (a AppointmentRecord) PricingComplete() bool {
	return a.Priced() && a.ServiceCategory != ""
}

// CandidateEmail is the first non-empty of userEmail, patientEmail and email.
func (a AppointmentRecord) CandidateEmail() string {
	for _, e := range []string{a.UserEmail, a.PatientEmail, a.Email} {
		if e != "" {
			return e
		}
	}
	return ""
}

// Service is the service identifier used for pricing lookups.
func (a AppointmentRecord) Service() string {
	if a.ServiceName != "" {
		return a.ServiceName
	}
	return a.Type
}

// IsPaid reports whether the booking flow recorded a payment.
func (a AppointmentRecord) IsPaid() bool {
	return strings.EqualFold(a.PaymentStatus, "paid")
}

// StoredString returns the raw stored value of key, placeholders included.
func (a AppointmentRecord) StoredString(key string) string {
	return strings.TrimSpace(a.Raw.String(key))
}

// Name is the best display name for the user, or "".
func (u UserRecord) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.FirstName
}

// LocalPart returns the part of an email address before "@".
func LocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func text(f db.Fields, key string) string {
	return strings.TrimSpace(f.String(key))
}
