package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hackgods/dermaclinic-admin/internal/db"
	"github.com/hackgods/dermaclinic-admin/internal/logging"
)

var services = []string{
	"PRP Therapy",
	"Standard Consultation",
	"Medical Dermatology",
	"Chemical Peel",
	"Laser Treatment",
	"Botox Injections",
	"Mole Removal",
	"Acne Treatment",
	"Hair Loss Consultation",
}

var timeSlots = []string{"09:00", "10:00", "11:30", "13:00", "14:30", "16:00"}

type user struct {
	id    string
	name  string
	email string
	phone string
}

func main() {
	_ = godotenv.Load()
	logger := logging.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"), "seed")
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	users, err := seedUsers(context.Background(), pool, logger, 200)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed users")
	}
	if err := seedAppointments(context.Background(), pool, logger, users, 2000); err != nil {
		logger.Fatal().Err(err).Msg("seed appointments")
	}

	logger.Info().Msg("seed complete")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, count int) ([]user, error) {
	logger.Info().Int("count", count).Msg("seeding users")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	users := make([]user, 0, count)
	for i := 0; i < count; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		u := user{
			id:    uuid.NewString(),
			name:  first + " " + last,
			email: strings.ToLower(first + "." + last + "@" + gofakeit.DomainName()),
			phone: gofakeit.Phone(),
		}

		data := db.Fields{
			"email":     u.email,
			"firstName": first,
			"lastName":  last,
			"role":      "patient",
			"isActive":  true,
		}
		// a third of the accounts never set a display name or phone
		if i%3 != 0 {
			data["displayName"] = u.name
			data["phoneNumber"] = u.phone
		}
		if err := insert(ctx, tx, db.CollectionUsers, u.id, data); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	logger.Info().Msg("users seeded")
	return users, nil
}

// seedAppointments writes bookings in the shapes older clients produced:
// complete, placeholder names, email only in patientEmail, linked only by
// patientId, unlinked walk-ins and unpriced services.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, users []user, count int) error {
	logger.Info().Int("count", count).Msg("seeding appointments")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			if err := insert(ctx, tx, db.CollectionAppointments, uuid.NewString(), fakeAppointment(users, i)); err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info().Int("seeded", end).Int("total", count).Msg("appointments progress")
	}

	logger.Info().Msg("appointments seeded")
	return nil
}

func fakeAppointment(users []user, i int) db.Fields {
	u := users[gofakeit.Number(0, len(users)-1)]
	data := db.Fields{
		"userId":          u.id,
		"serviceName":     gofakeit.RandomString(services),
		"appointmentDate": time.Now().AddDate(0, 0, gofakeit.Number(-90, 60)).Format("2006-01-02"),
		"timeSlot":        gofakeit.RandomString(timeSlots),
		"paymentStatus":   gofakeit.RandomString([]string{"paid", "Paid", "pending"}),
		"status":          gofakeit.RandomString([]string{"pending", "approved", "completed"}),
	}

	switch i % 6 {
	case 0:
		data["userName"] = u.name
		data["userEmail"] = u.email
		data["userPhone"] = u.phone
		data["amount"] = gofakeit.Number(5, 45) * 100
		data["serviceCategory"] = gofakeit.RandomString([]string{"Medical", "Cosmetic"})
	case 1:
		data["userName"] = "Patient"
		data["userEmail"] = ""
		data["patientEmail"] = strings.ToUpper(u.email)
		data["userPhone"] = "N/A"
	case 2:
		delete(data, "userId")
		data["patientId"] = u.id
		data["userName"] = "Unknown Patient"
		data["amount"] = 0
	case 3:
		delete(data, "userId")
		data["email"] = gofakeit.Email()
	case 4:
		delete(data, "userId")
		delete(data, "serviceName")
		data["type"] = gofakeit.RandomString(services)
	default:
		data["userEmail"] = u.email
	}
	return data
}

func insert(ctx context.Context, tx pgx.Tx, collection, id string, data db.Fields) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO documents (collection, id, data, version, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, 1, clock_timestamp(), clock_timestamp())
	`, collection, id, string(body))
	return err
}
