package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/openride/rideshare-api/internal/middleware"
	"github.com/openride/rideshare-api/internal/repo"
)

func TestUserHandler_CreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// Username free
	mock.ExpectQuery(`SELECT id, username, password_hash`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userRows))
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	h := &UserHandler{Repo: repo.NewUserRepo(db), Tokens: testTokens(), BcryptCost: bcrypt.MinCost}

	body, _ := json.Marshal(map[string]string{
		"username": "alice", "password": "p1",
		"firstname": "A", "lastname": "L", "email": "a@a",
	})
	req := httptest.NewRequest("POST", "/api/users", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.CreateUser(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("CreateUser status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Token   string `json:"token"`
		Message string `json:"message"`
		User    struct {
			ID    int  `json:"id"`
			Admin bool `json:"admin"`
		} `json:"user"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Token == "" || out.User.ID != 2 || out.User.Admin {
		t.Errorf("unexpected response: %+v", out)
	}
	if out.Message != "Successfully Created User" {
		t.Errorf("message: got %q", out.Message)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("p1\"")) {
		t.Error("plaintext password leaked into response")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_CreateUser_MissingFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := &UserHandler{Repo: repo.NewUserRepo(db), Tokens: testTokens(), BcryptCost: bcrypt.MinCost}

	for _, body := range []map[string]string{
		{"username": "alice", "password": "p1", "firstname": "A"},             // no lastname
		{"username": "alice", "firstname": "A", "lastname": "L"},              // no password
		{"password": "p1", "firstname": "A", "lastname": "L"},                 // no username
		{"username": "alice", "password": "", "firstname": "A", "lastname": "L"}, // empty password
	} {
		b, _ := json.Marshal(body)
		req := httptest.NewRequest("POST", "/api/users", bytes.NewReader(b))
		rr := httptest.NewRecorder()
		h.CreateUser(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("CreateUser(%v) status: got %d, want 400", body, rr.Code)
		}
		var out struct {
			Message string `json:"message"`
		}
		json.NewDecoder(rr.Body).Decode(&out)
		if out.Message != MsgMissingFields {
			t.Errorf("message: got %q", out.Message)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_CreateUser_UsernameTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, password_hash`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userRows).
			AddRow(2, "alice", "h", "A", "L", "a@a", "", false))

	h := &UserHandler{Repo: repo.NewUserRepo(db), Tokens: testTokens(), BcryptCost: bcrypt.MinCost}

	body, _ := json.Marshal(map[string]string{
		"username": "alice", "password": "p1", "firstname": "A", "lastname": "L",
	})
	req := httptest.NewRequest("POST", "/api/users", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.CreateUser(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("CreateUser status: got %d, want 409", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_GetUser_PublicProjection(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, password_hash`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(userRows).
			AddRow(2, "alice", "secret-hash", "A", "L", "a@a", "12345", false))

	h := &UserHandler{Repo: repo.NewUserRepo(db)}

	req := requestWithChiURLParams("GET", "/api/users/2", nil, map[string]string{"id": "2"})
	rr := httptest.NewRecorder()
	h.GetUser(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("GetUser status: got %d, want 200", rr.Code)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("secret-hash")) {
		t.Error("password hash leaked into public projection")
	}
	var out struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ID != 2 || out.Username != "alice" || out.Email != "a@a" {
		t.Errorf("unexpected projection: %+v", out)
	}
}

func TestUserHandler_GetUser_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, password_hash`).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(userRows))

	h := &UserHandler{Repo: repo.NewUserRepo(db)}

	req := requestWithChiURLParams("GET", "/api/users/99", nil, map[string]string{"id": "99"})
	rr := httptest.NewRecorder()
	h.GetUser(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("GetUser status: got %d, want 404", rr.Code)
	}
}

// A page that comes back exactly full reports has_more=true even when it is
// the final page. Known approximation, kept on purpose.
func TestUserHandler_ListUsers_HasMoreApproximation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	listRows := []string{"id", "username", "firstname", "lastname", "email", "phone", "admin"}

	// Full page of 2 -> has_more true.
	mock.ExpectQuery(`SELECT id, username, firstname`).
		WithArgs(2, 0).
		WillReturnRows(sqlmock.NewRows(listRows).
			AddRow(1, "a", "F", "L", "a@x", "", true).
			AddRow(2, "b", "F", "L", "b@x", "", false))
	// Short page of 1 -> has_more false.
	mock.ExpectQuery(`SELECT id, username, firstname`).
		WithArgs(2, 2).
		WillReturnRows(sqlmock.NewRows(listRows).
			AddRow(3, "c", "F", "L", "c@x", "", false))

	h := &UserHandler{Repo: repo.NewUserRepo(db)}

	page := func(p int) (ids []int, hasMore bool) {
		req := httptest.NewRequest("GET", "/api/users?page="+strconv.Itoa(p)+"&size=2", nil)
		rr := httptest.NewRecorder()
		h.ListUsers(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("ListUsers status: got %d, want 200", rr.Code)
		}
		var out struct {
			Users []struct {
				ID int `json:"id"`
			} `json:"users"`
			HasMore bool `json:"has_more"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		for _, u := range out.Users {
			ids = append(ids, u.ID)
		}
		return ids, out.HasMore
	}

	ids0, more0 := page(0)
	ids1, more1 := page(1)

	if !more0 {
		t.Error("full first page should report has_more=true")
	}
	if more1 {
		t.Error("short last page should report has_more=false")
	}
	all := append(ids0, ids1...)
	for i, id := range all {
		if id != i+1 {
			t.Errorf("ids not ascending from 1: %v", all)
			break
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_UpdateUser_SelfRehashesPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, password_hash`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(userRows).
			AddRow(2, "alice", "old-hash", "A", "L", "a@a", "", false))
	mock.ExpectExec(`UPDATE users SET password_hash = \$1 WHERE id = \$2`).
		WithArgs(sqlmock.AnyArg(), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	h := &UserHandler{Repo: repo.NewUserRepo(db), BcryptCost: bcrypt.MinCost}

	body, _ := json.Marshal(map[string]string{"password": "newpass"})
	req := requestWithChiURLParams("PUT", "/api/users/2", body, map[string]string{"id": "2"})
	req = asIdentity(req, middleware.Identity{ID: 2, Username: "alice"})
	rr := httptest.NewRecorder()
	h.UpdateUser(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("UpdateUser status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_UpdateUser_OtherUserForbidden(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := &UserHandler{Repo: repo.NewUserRepo(db), BcryptCost: bcrypt.MinCost}

	body, _ := json.Marshal(map[string]string{"firstname": "X"})
	req := requestWithChiURLParams("PUT", "/api/users/7", body, map[string]string{"id": "7"})
	req = asIdentity(req, middleware.Identity{ID: 2, Username: "alice"})
	rr := httptest.NewRecorder()
	h.UpdateUser(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("UpdateUser status: got %d, want 403", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_UpdateUser_AdminCanGrantAdmin(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, password_hash`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(userRows).
			AddRow(2, "alice", "h", "A", "L", "a@a", "", false))
	mock.ExpectExec(`UPDATE users SET admin = \$1 WHERE id = \$2`).
		WithArgs(true, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	h := &UserHandler{Repo: repo.NewUserRepo(db), BcryptCost: bcrypt.MinCost}

	body, _ := json.Marshal(map[string]bool{"admin": true})
	req := requestWithChiURLParams("PUT", "/api/users/2", body, map[string]string{"id": "2"})
	req = asIdentity(req, middleware.Identity{ID: 1, Username: "admin", Admin: true})
	rr := httptest.NewRecorder()
	h.UpdateUser(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("UpdateUser status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_UpdateUser_NonAdminCannotGrantAdmin(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, password_hash`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(userRows).
			AddRow(2, "alice", "h", "A", "L", "a@a", "", false))

	h := &UserHandler{Repo: repo.NewUserRepo(db), BcryptCost: bcrypt.MinCost}

	body, _ := json.Marshal(map[string]bool{"admin": true})
	req := requestWithChiURLParams("PUT", "/api/users/2", body, map[string]string{"id": "2"})
	req = asIdentity(req, middleware.Identity{ID: 2, Username: "alice"})
	rr := httptest.NewRecorder()
	h.UpdateUser(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("UpdateUser status: got %d, want 403", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_DeleteUser_SelfCascades(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM passenger_trips`).WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM driver_trips`).WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM users`).WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	h := &UserHandler{Repo: repo.NewUserRepo(db)}

	req := requestWithChiURLParams("DELETE", "/api/users/2", nil, map[string]string{"id": "2"})
	req = asIdentity(req, middleware.Identity{ID: 2, Username: "alice"})
	rr := httptest.NewRecorder()
	h.DeleteUser(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("DeleteUser status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Message string `json:"message"`
	}
	json.NewDecoder(rr.Body).Decode(&out)
	if out.Message != "User is deleted" {
		t.Errorf("message: got %q", out.Message)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_DeleteUser_OtherUserForbidden(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := &UserHandler{Repo: repo.NewUserRepo(db)}

	req := requestWithChiURLParams("DELETE", "/api/users/7", nil, map[string]string{"id": "7"})
	req = asIdentity(req, middleware.Identity{ID: 2, Username: "alice"})
	rr := httptest.NewRecorder()
	h.DeleteUser(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("DeleteUser status: got %d, want 403", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
