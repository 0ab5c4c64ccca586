package db

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var documentColumns = []string{"id", "data", "version", "created_at", "updated_at"}

func TestPgStore_FetchAllDecodesBodiesInOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT id, data, version, created_at, updated_at").
		WithArgs(CollectionAppointments).
		WillReturnRows(pgxmock.NewRows(documentColumns).
			AddRow("a1", []byte(`{"userName":"Patient","amount":3200}`), int64(1), now, now).
			AddRow("a2", []byte(`{}`), int64(4), now, now))

	store := NewPgStore(mock)
	docs, err := store.FetchAll(context.Background(), CollectionAppointments)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "a1", docs[0].ID)
	assert.Equal(t, "Patient", docs[0].Data.String("userName"))
	amount, ok := docs[0].Data.Decimal("amount")
	require.True(t, ok)
	assert.Equal(t, "3200", amount.String())
	assert.Equal(t, int64(4), docs[1].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_GetMissingDocument(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM documents").
		WithArgs(CollectionChats, "missing").
		WillReturnRows(pgxmock.NewRows(documentColumns))

	_, err = NewPgStore(mock).Get(context.Background(), CollectionChats, "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestPgStore_UpdateFieldsMergesPatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE documents").
		WithArgs(CollectionAppointments, "a1", `{"userName":"Jane"}`, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = NewPgStore(mock).UpdateFields(context.Background(), CollectionAppointments, "a1", Fields{"userName": "Jane"}, 3)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_UpdateFieldsVersionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE documents").
		WithArgs(CollectionAppointments, "a1", `{"userPhone":"555-1"}`, int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(CollectionAppointments, "a1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err = NewPgStore(mock).UpdateFields(context.Background(), CollectionAppointments, "a1", Fields{"userPhone": "555-1"}, 2)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_UpdateFieldsMissingDocument(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE documents").
		WithArgs(CollectionAppointments, "gone", `{"amount":500}`, int64(0)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(CollectionAppointments, "gone").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err = NewPgStore(mock).UpdateFields(context.Background(), CollectionAppointments, "gone", Fields{"amount": 500}, 0)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestPgStore_InsertAssignsID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(CollectionNotifications, pgxmock.AnyArg(), `{"read":false}`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := NewPgStore(mock).Insert(context.Background(), CollectionNotifications, Fields{"read": false})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
