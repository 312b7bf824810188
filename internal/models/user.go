package models

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Firstname    string `json:"firstname"`
	Lastname     string `json:"lastname"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Admin        bool   `json:"admin"`
}

// PublicUser is the outward projection of a user record. The password hash
// never appears here. Authenticated is set on login/registration responses.
type PublicUser struct {
	ID            int    `json:"id"`
	Admin         bool   `json:"admin"`
	Firstname     string `json:"firstname"`
	Lastname      string `json:"lastname"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	Authenticated bool   `json:"authenticated,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Admin:     u.Admin,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Email:     u.Email,
		Username:  u.Username,
	}
}
