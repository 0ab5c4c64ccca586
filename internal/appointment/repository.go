package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/hackgods/dermaclinic-admin/internal/db"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrUserNotFound        = errors.New("user not found")
)

// DocumentStore contains the store operations needed by the repository.
type DocumentStore interface {
	FetchAll(ctx context.Context, collection string) ([]db.Document, error)
	Get(ctx context.Context, collection, id string) (*db.Document, error)
	UpdateFields(ctx context.Context, collection, id string, patch db.Fields, expectedVersion int64) error
}

// Repository reads users and appointments as immutable snapshots and applies
// partial updates to single appointments.
type Repository struct {
	store DocumentStore
}

func NewRepository(store DocumentStore) *Repository {
	return &Repository{store: store}
}

func (r *Repository) ListUsers(ctx context.Context) ([]UserRecord, error) {
	docs, err := r.store.FetchAll(ctx, db.CollectionUsers)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	users := make([]UserRecord, 0, len(docs))
	for _, d := range docs {
		users = append(users, DecodeUser(d))
	}
	return users, nil
}

func (r *Repository) ListAppointments(ctx context.Context) ([]AppointmentRecord, error) {
	docs, err := r.store.FetchAll(ctx, db.CollectionAppointments)
	if err != nil {
		return nil, fmt.Errorf("fetch appointments: %w", err)
	}
	out := make([]AppointmentRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, DecodeAppointment(d))
	}
	return out, nil
}

func (r *Repository) GetAppointment(ctx context.Context, id string) (*AppointmentRecord, error) {
	doc, err := r.store.Get(ctx, db.CollectionAppointments, id)
	if err != nil {
		if errors.Is(err, db.ErrDocumentNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	rec := DecodeAppointment(*doc)
	return &rec, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (*UserRecord, error) {
	doc, err := r.store.Get(ctx, db.CollectionUsers, id)
	if err != nil {
		if errors.Is(err, db.ErrDocumentNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	u := DecodeUser(*doc)
	return &u, nil
}

// PatchAppointment writes patch to the appointment, conditional on the version
// it was read at.
func (r *Repository) PatchAppointment(ctx context.Context, rec AppointmentRecord, patch db.Fields) error {
	return r.store.UpdateFields(ctx, db.CollectionAppointments, rec.ID, patch, rec.Version)
}
