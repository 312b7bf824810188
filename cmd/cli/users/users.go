package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/openride/rideshare-api/cmd/cli/config"
	"github.com/openride/rideshare-api/cmd/cli/output"
	"github.com/openride/rideshare-api/cmd/cli/root"
)

// ==========================
// CLI Command Init
// ==========================
func init() {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users and authentication",
		Long: `Register or login a user to the ride-share API.
Stores JWT token locally for future commands.`,
	}

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new user",
		Long:  "Register a new user account and save the JWT token locally.",
		RunE:  runRegister,
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Login an existing user",
		Long:  "Login and save JWT token locally for future CLI commands.",
		RunE:  runLogin,
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Logout current user",
		Long:  "Remove locally saved JWT token.",
		RunE:  runLogout,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users (admin only)",
		RunE:  runList,
	}
	listCmd.Flags().Int("page", 0, "page number")
	listCmd.Flags().Int("size", 10, "page size")

	usersCmd.AddCommand(registerCmd, loginCmd, logoutCmd, listCmd)
	root.GetRoot().AddCommand(usersCmd)
}

// ==========================
// Register User
// ==========================
func runRegister(cmd *cobra.Command, args []string) error {
	var username, password, firstname, lastname, email string
	fmt.Print("Username: ")
	fmt.Scanln(&username)
	fmt.Print("Password: ")
	fmt.Scanln(&password)
	fmt.Print("First name: ")
	fmt.Scanln(&firstname)
	fmt.Print("Last name: ")
	fmt.Scanln(&lastname)
	fmt.Print("Email: ")
	fmt.Scanln(&email)

	payload := map[string]string{
		"username":  username,
		"password":  password,
		"firstname": firstname,
		"lastname":  lastname,
		"email":     email,
	}
	body, _ := json.Marshal(payload)

	resp, err := http.Post(config.APIURL()+"/api/users", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s", string(b))
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	if result.Token != "" {
		if err := config.SaveToken(result.Token); err != nil {
			return err
		}
	}

	fmt.Println("User registered successfully! You are now logged in.")
	return nil
}

// ==========================
// Login User
// ==========================
func runLogin(cmd *cobra.Command, args []string) error {
	var username, password string
	fmt.Print("Username: ")
	fmt.Scanln(&username)
	fmt.Print("Password: ")
	fmt.Scanln(&password)

	payload := map[string]string{
		"username": username,
		"password": password,
	}
	body, _ := json.Marshal(payload)

	resp, err := http.Post(config.APIURL()+"/api/login", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s", string(b))
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	if result.Token == "" {
		return fmt.Errorf("token not returned by API")
	}
	if err := config.SaveToken(result.Token); err != nil {
		return err
	}

	fmt.Println("Logged in successfully.")
	return nil
}

// ==========================
// Logout User
// ==========================
func runLogout(cmd *cobra.Command, args []string) error {
	if err := config.ClearToken(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

// ==========================
// List Users
// ==========================
func runList(cmd *cobra.Command, args []string) error {
	token := config.LoadToken()
	if token == "" {
		return fmt.Errorf("not logged in, run: rideshare users login")
	}

	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("size")

	url := fmt.Sprintf("%s/api/users?page=%d&size=%d", config.APIURL(), page, size)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s", string(b))
	}

	var result struct {
		Users []struct {
			ID        int    `json:"id"`
			Username  string `json:"username"`
			Firstname string `json:"firstname"`
			Lastname  string `json:"lastname"`
			Email     string `json:"email"`
			Admin     bool   `json:"admin"`
		} `json:"users"`
		HasMore bool `json:"has_more"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(result.Users))
	for _, u := range result.Users {
		rows = append(rows, []interface{}{u.ID, u.Username, u.Firstname, u.Lastname, u.Email, u.Admin})
	}
	output.RenderTable([]string{"ID", "Username", "Firstname", "Lastname", "Email", "Admin"}, rows)

	if result.HasMore {
		fmt.Printf("More pages available, use --page %d\n", page+1)
	}
	return nil
}
