package appointment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/dermaclinic-admin/internal/db"
)

func TestDecodeAppointment_PlaceholdersBecomeAbsent(t *testing.T) {
	rec := DecodeAppointment(db.Document{ID: "a1", Version: 3, Data: db.Fields{
		"userName":  "Unknown Patient",
		"userPhone": "N/A",
		"userEmail": "  j@x.com ",
		"amount":    0,
	}})

	assert.Equal(t, "a1", rec.ID)
	assert.Equal(t, int64(3), rec.Version)
	assert.Empty(t, rec.UserName)
	assert.Empty(t, rec.UserPhone)
	assert.Equal(t, "j@x.com", rec.UserEmail)
	assert.False(t, rec.Priced())
	assert.Equal(t, "Unknown Patient", rec.StoredString(FieldUserName))
}

func TestAppointmentRecord_Priced(t *testing.T) {
	cases := map[string]struct {
		amount any
		want   bool
	}{
		"absent":       {amount: nil, want: false},
		"empty string": {amount: "", want: false},
		"zero":         {amount: 0, want: false},
		"zero text":    {amount: "0.00", want: false},
		"number":       {amount: 1300, want: true},
		"numeric text": {amount: "1300", want: true},
		"free text":    {amount: "R 3,200", want: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			data := db.Fields{}
			if tc.amount != nil {
				data["amount"] = tc.amount
			}
			rec := DecodeAppointment(db.Document{ID: "a1", Data: data})
			assert.Equal(t, tc.want, rec.Priced())
		})
	}
}

func TestAppointmentRecord_IdentityComplete(t *testing.T) {
	cases := []struct {
		name string
		data db.Fields
		want bool
	}{
		{"all present", db.Fields{"userName": "Jane", "userEmail": "j@x.com", "userPhone": "555"}, true},
		{"placeholder name", db.Fields{"userName": "Patient", "userEmail": "j@x.com", "userPhone": "555"}, false},
		{"placeholder phone", db.Fields{"userName": "Jane", "userEmail": "j@x.com", "userPhone": "N/A"}, false},
		{"missing email", db.Fields{"userName": "Jane", "userPhone": "555"}, false},
		{"empty", db.Fields{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := DecodeAppointment(db.Document{ID: "x", Data: tc.data})
			assert.Equal(t, tc.want, rec.IdentityComplete())
		})
	}
}

func TestAppointmentRecord_CandidateEmailPriority(t *testing.T) {
	rec := DecodeAppointment(db.Document{Data: db.Fields{"patientEmail": "p@x.com", "email": "e@x.com"}})
	assert.Equal(t, "p@x.com", rec.CandidateEmail())

	rec = DecodeAppointment(db.Document{Data: db.Fields{"userEmail": "u@x.com", "patientEmail": "p@x.com"}})
	assert.Equal(t, "u@x.com", rec.CandidateEmail())

	rec = DecodeAppointment(db.Document{Data: db.Fields{"email": "e@x.com"}})
	assert.Equal(t, "e@x.com", rec.CandidateEmail())

	assert.Empty(t, DecodeAppointment(db.Document{Data: db.Fields{}}).CandidateEmail())
}

func TestAppointmentRecord_ServiceFallsBackToType(t *testing.T) {
	rec := DecodeAppointment(db.Document{Data: db.Fields{"type": "Chemical Peel"}})
	assert.Equal(t, "Chemical Peel", rec.Service())

	rec = DecodeAppointment(db.Document{Data: db.Fields{"type": "Chemical Peel", "serviceName": "Microneedling"}})
	assert.Equal(t, "Microneedling", rec.Service())
}

func TestDecodeUser_PhoneFallback(t *testing.T) {
	u := DecodeUser(db.Document{ID: "u1", Data: db.Fields{"email": "a@x.com", "phone": "555-2"}})
	assert.Equal(t, "555-2", u.Phone)

	u = DecodeUser(db.Document{ID: "u1", Data: db.Fields{"phoneNumber": "555-1", "phone": "555-2"}})
	assert.Equal(t, "555-1", u.Phone)
}

func TestLocalPart(t *testing.T) {
	assert.Equal(t, "jane.doe", LocalPart("jane.doe@clinic.co.za"))
	assert.Equal(t, "nodomain", LocalPart("nodomain"))
}

func TestRepository_GetAppointmentNotFound(t *testing.T) {
	repo := NewRepository(db.NewMemoryStore())
	_, err := repo.GetAppointment(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = repo.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_PatchAppointmentIsConditional(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	store.Put(db.CollectionAppointments, "a1", db.Fields{"userName": "Patient"})
	repo := NewRepository(store)

	appts, err := repo.ListAppointments(ctx)
	require.NoError(t, err)
	require.Len(t, appts, 1)

	// someone edits the record after it was fetched
	require.NoError(t, store.UpdateFields(ctx, db.CollectionAppointments, "a1", db.Fields{"notes": "x"}, 0))

	err = repo.PatchAppointment(ctx, appts[0], db.Fields{"userName": "Jane"})
	assert.ErrorIs(t, err, db.ErrVersionConflict)
}
