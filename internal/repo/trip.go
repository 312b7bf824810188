package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/openride/rideshare-api/internal/models"
)

// ==========================
// TripRepo
// ==========================
// TripRepo serves one of the two structurally identical trip ledgers.
// The table name is fixed at construction, never taken from input.
type TripRepo struct {
	DB    *sql.DB
	table string
}

func NewDriverTripRepo(db *sql.DB) *TripRepo {
	return &TripRepo{DB: db, table: "driver_trips"}
}

func NewPassengerTripRepo(db *sql.DB) *TripRepo {
	return &TripRepo{DB: db, table: "passenger_trips"}
}

// Table returns the ledger's table name.
func (r *TripRepo) Table() string {
	return r.table
}

// ==========================
// Add Trip
// ==========================
func (r *TripRepo) Add(ctx context.Context, t *models.Trip) (int, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (userid, pickup_location, destination, price, departure_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, r.table)

	var id int
	err := r.DB.QueryRowContext(ctx, query,
		t.UserID, t.PickupLocation, t.Destination, t.Price, t.DepartureTime,
	).Scan(&id)

	if err != nil {
		return 0, mapConflict(err)
	}

	return id, nil
}

// ==========================
// Get Trip By ID
// ==========================
// GetByID returns the trip joined with the owner's username, user id, and
// phone. Absence is (nil, nil), not an error.
func (r *TripRepo) GetByID(ctx context.Context, id int) (*models.TripView, error) {
	query := fmt.Sprintf(`
		SELECT t.id, u.username, u.id, u.phone, t.pickup_location, t.destination,
		       to_char(t.price, 'FM999999990.00'), t.departure_time
		FROM %s t
		LEFT JOIN users u ON t.userid = u.id
		WHERE t.id = $1
	`, r.table)

	v := &models.TripView{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.Username, &v.UserID, &v.Phone,
		&v.PickupLocation, &v.Destination, &v.Price, &v.DepartureTime,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ==========================
// List Trips (paginated, optionally filtered)
// ==========================
// List returns up to size trips ordered by id ascending, skipping page*size
// records, each joined with the owner's username and user id. Non-empty
// pickup and destination filter by exact match, independently or together.
func (r *TripRepo) List(ctx context.Context, pickup, destination string, page, size int) ([]models.TripView, error) {
	where := ""
	args := []interface{}{}
	switch {
	case pickup != "" && destination != "":
		where = "WHERE t.pickup_location = $1 AND t.destination = $2"
		args = append(args, pickup, destination)
	case pickup != "":
		where = "WHERE t.pickup_location = $1"
		args = append(args, pickup)
	case destination != "":
		where = "WHERE t.destination = $1"
		args = append(args, destination)
	}

	query := fmt.Sprintf(`
		SELECT t.id, u.username, u.id, t.pickup_location, t.destination,
		       to_char(t.price, 'FM999999990.00'), t.departure_time
		FROM %s t
		LEFT JOIN users u ON t.userid = u.id
		%s
		ORDER BY t.id
		LIMIT $%d OFFSET $%d
	`, r.table, where, len(args)+1, len(args)+2)
	args = append(args, size, page*size)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := []models.TripView{}
	for rows.Next() {
		var v models.TripView
		if err := rows.Scan(&v.ID, &v.Username, &v.UserID,
			&v.PickupLocation, &v.Destination, &v.Price, &v.DepartureTime); err != nil {
			return nil, err
		}
		trips = append(trips, v)
	}

	return trips, rows.Err()
}

// ==========================
// Purge Departed Trips
// ==========================
// PurgeDepartedBefore removes trips whose departure time is before cutoff.
// Used by the background purge job.
func (r *TripRepo) PurgeDepartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE departure_time < $1`, r.table)
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
