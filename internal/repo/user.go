package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/openride/rideshare-api/internal/models"
)

// ErrConflict is returned when an insert or update violates a uniqueness
// constraint (username or email).
var ErrConflict = errors.New("conflict")

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// UserUpdate holds the partial fields of an update. Nil pointers are left
// untouched. Password must already be hashed by the caller.
type UserUpdate struct {
	Username     *string
	PasswordHash *string
	Firstname    *string
	Lastname     *string
	Email        *string
	Phone        *string
	Admin        *bool
}

const userColumns = `id, username, password_hash, firstname, lastname, email, phone, admin`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var email sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Firstname, &u.Lastname, &email, &u.Phone, &u.Admin)
	if err == sql.ErrNoRows {
		// Absence is an empty result, not an error.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	return u, nil
}

// ==========================
// Create User
// ==========================
func (r *UserRepo) Create(ctx context.Context, user *models.User) (int, error) {
	query := `
		INSERT INTO users (username, password_hash, firstname, lastname, email, phone, admin)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		RETURNING id
	`

	var id int
	err := r.DB.QueryRowContext(ctx, query,
		user.Username, user.PasswordHash, user.Firstname, user.Lastname,
		user.Email, user.Phone, user.Admin,
	).Scan(&id)

	if err != nil {
		return 0, mapConflict(err)
	}

	return id, nil
}

// EnsureAdmin inserts the seed admin account if the username is not taken.
// Called at startup and after a database reset.
func (r *UserRepo) EnsureAdmin(ctx context.Context, username, passwordHash string) error {
	query := `
		INSERT INTO users (username, password_hash, firstname, lastname, phone, admin)
		VALUES ($1, $2, 'Admin', 'Admin', '', TRUE)
		ON CONFLICT (username) DO NOTHING
	`
	_, err := r.DB.ExecContext(ctx, query, username, passwordHash)
	return err
}

// ==========================
// Get By ID
// ==========================
func (r *UserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUser(r.DB.QueryRowContext(ctx, query, id))
}

// ==========================
// Get By Username
// ==========================
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	return scanUser(r.DB.QueryRowContext(ctx, query, username))
}

// ==========================
// List Users (paginated)
// ==========================
// List returns up to size users ordered by id ascending, skipping page*size
// records. The password hash column is never selected.
func (r *UserRepo) List(ctx context.Context, page, size int) ([]models.User, error) {
	query := `
		SELECT id, username, firstname, lastname, email, phone, admin
		FROM users
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.DB.QueryContext(ctx, query, size, page*size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		var email sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &u.Firstname, &u.Lastname, &email, &u.Phone, &u.Admin); err != nil {
			return nil, err
		}
		u.Email = email.String
		users = append(users, u)
	}

	return users, rows.Err()
}

// ==========================
// Update User (partial)
// ==========================
func (r *UserRepo) Update(ctx context.Context, id int, upd UserUpdate) error {
	set := []string{}
	args := []interface{}{}
	add := func(col string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Username != nil {
		add("username", *upd.Username)
	}
	if upd.PasswordHash != nil {
		add("password_hash", *upd.PasswordHash)
	}
	if upd.Firstname != nil {
		add("firstname", *upd.Firstname)
	}
	if upd.Lastname != nil {
		add("lastname", *upd.Lastname)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Phone != nil {
		add("phone", *upd.Phone)
	}
	if upd.Admin != nil {
		add("admin", *upd.Admin)
	}

	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args))

	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return mapConflict(err)
	}
	return nil
}

// ==========================
// Delete User (cascading)
// ==========================
// Delete removes the user's trips from both ledgers and then the user record,
// all within a single transaction so a failure leaves nothing half-deleted.
func (r *UserRepo) Delete(ctx context.Context, id int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM passenger_trips WHERE userid = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM driver_trips WHERE userid = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit()
}

// mapConflict translates a unique-violation driver error into ErrConflict.
func mapConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrConflict
	}
	return err
}
