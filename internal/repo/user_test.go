package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/openride/rideshare-api/internal/models"
)

func TestUserRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "hashed", "A", "L", "a@a", "12345", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	r := NewUserRepo(db)
	id, err := r.Create(context.Background(), &models.User{
		Username:     "alice",
		PasswordHash: "hashed",
		Firstname:    "A",
		Lastname:     "L",
		Email:        "a@a",
		Phone:        "12345",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 2 {
		t.Errorf("id: got %d, want 2", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Create_Conflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505"})

	r := NewUserRepo(db)
	_, err = r.Create(context.Background(), &models.User{Username: "alice", PasswordHash: "h", Firstname: "A", Lastname: "L"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("error: got %v, want ErrConflict", err)
	}
}

func TestUserRepo_GetByUsername_Absent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, password_hash`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "firstname", "lastname", "email", "phone", "admin"}))

	r := NewUserRepo(db)
	user, err := r.GetByUsername(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil for absent user, got %+v", user)
	}
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, password_hash`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "firstname", "lastname", "email", "phone", "admin"}).
			AddRow(1, "alice", "hashed", "A", "L", nil, "", false))

	r := NewUserRepo(db)
	user, err := r.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user == nil || user.Username != "alice" || user.Email != "" {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestUserRepo_List_PaginationArgs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// page 2, size 5 -> LIMIT 5 OFFSET 10; hash column never selected
	mock.ExpectQuery(`SELECT id, username, firstname, lastname, email, phone, admin`).
		WithArgs(5, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "firstname", "lastname", "email", "phone", "admin"}).
			AddRow(11, "u11", "F", "L", "u11@x", "", false).
			AddRow(12, "u12", "F", "L", "u12@x", "", false))

	r := NewUserRepo(db)
	users, err := r.List(context.Background(), 2, 5)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 || users[0].ID != 11 || users[1].ID != 12 {
		t.Errorf("unexpected users: %+v", users)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Update_Partial(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET username = \$1, phone = \$2 WHERE id = \$3`).
		WithArgs("alice2", "555", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewUserRepo(db)
	username := "alice2"
	phone := "555"
	err = r.Update(context.Background(), 1, UserUpdate{Username: &username, Phone: &phone})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Update_NoFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	r := NewUserRepo(db)
	if err := r.Update(context.Background(), 1, UserUpdate{}); err != nil {
		t.Fatalf("Update with no fields: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Update_Conflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET email = \$1 WHERE id = \$2`).
		WithArgs("taken@x", 1).
		WillReturnError(&pq.Error{Code: "23505"})

	r := NewUserRepo(db)
	email := "taken@x"
	err = r.Update(context.Background(), 1, UserUpdate{Email: &email})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("error: got %v, want ErrConflict", err)
	}
}

// The cascade must remove both ledgers' trips and then the user inside one
// transaction.
func TestUserRepo_Delete_Cascades(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM passenger_trips WHERE userid = \$1`).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM driver_trips WHERE userid = \$1`).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := NewUserRepo(db)
	if err := r.Delete(context.Background(), 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Delete_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM passenger_trips WHERE userid = \$1`).
		WithArgs(2).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	r := NewUserRepo(db)
	if err := r.Delete(context.Background(), 2); err == nil {
		t.Fatal("Delete: expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_EnsureAdmin(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("admin", "hashed").
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := NewUserRepo(db)
	if err := r.EnsureAdmin(context.Background(), "admin", "hashed"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
