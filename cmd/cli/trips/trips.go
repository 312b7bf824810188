package trips

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/openride/rideshare-api/cmd/cli/config"
	"github.com/openride/rideshare-api/cmd/cli/output"
	"github.com/openride/rideshare-api/cmd/cli/root"
)

// ==========================
// CLI Command Init
// ==========================
func init() {
	tripsCmd := &cobra.Command{
		Use:   "trips",
		Short: "Browse and publish trips",
		Long:  "List, inspect, and publish driver-offered or passenger-requested trips.",
	}

	listCmd := &cobra.Command{
		Use:   "list [driver|passenger]",
		Short: "List trips from one ledger",
		Args:  cobra.ExactArgs(1),
		RunE:  runList,
	}
	listCmd.Flags().Int("page", 0, "page number")
	listCmd.Flags().Int("size", 10, "page size")
	listCmd.Flags().String("destination", "", "filter by destination")
	listCmd.Flags().String("pickup", "", "filter by pickup location")

	addCmd := &cobra.Command{
		Use:   "add [driver|passenger]",
		Short: "Publish a trip",
		Args:  cobra.ExactArgs(1),
		RunE:  runAdd,
	}
	addCmd.Flags().String("pickup", "", "pickup location (required)")
	addCmd.Flags().String("destination", "", "destination (required)")
	addCmd.Flags().Float64("price", 0, "price")
	addCmd.Flags().String("departure", "", "departure time, RFC3339 (required)")

	tripsCmd.AddCommand(listCmd, addCmd)
	root.GetRoot().AddCommand(tripsCmd)
}

func ledgerPath(arg string) (string, error) {
	switch arg {
	case "driver", "passenger":
		return "/api/trips/" + arg, nil
	}
	return "", fmt.Errorf("ledger must be driver or passenger, got %q", arg)
}

// ==========================
// List Trips
// ==========================
func runList(cmd *cobra.Command, args []string) error {
	token := config.LoadToken()
	if token == "" {
		return fmt.Errorf("not logged in, run: rideshare users login")
	}

	path, err := ledgerPath(args[0])
	if err != nil {
		return err
	}

	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("size")
	destination, _ := cmd.Flags().GetString("destination")
	pickup, _ := cmd.Flags().GetString("pickup")

	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("size", fmt.Sprint(size))
	if destination != "" {
		q.Set("destination", destination)
	}
	if pickup != "" {
		q.Set("pickup", pickup)
	}

	req, err := http.NewRequest("GET", config.APIURL()+path+"?"+q.Encode(), nil)
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
		Trips []struct {
			ID             int       `json:"id"`
			Username       string    `json:"username"`
			PickupLocation string    `json:"pickupLocation"`
			Destination    string    `json:"destination"`
			Price          string    `json:"price"`
			DepartureTime  time.Time `json:"departureTime"`
		} `json:"trips"`
		HasMore bool `json:"has_more"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(result.Trips))
	for _, t := range result.Trips {
		rows = append(rows, []interface{}{
			t.ID, t.Username, t.PickupLocation, t.Destination, t.Price,
			t.DepartureTime.Format(time.RFC3339),
		})
	}
	output.RenderTable([]string{"ID", "Username", "Pickup", "Destination", "Price", "Departure"}, rows)

	if result.HasMore {
		fmt.Printf("More pages available, use --page %d\n", page+1)
	}
	return nil
}

// ==========================
// Add Trip
// ==========================
func runAdd(cmd *cobra.Command, args []string) error {
	token := config.LoadToken()
	if token == "" {
		return fmt.Errorf("not logged in, run: rideshare users login")
	}

	path, err := ledgerPath(args[0])
	if err != nil {
		return err
	}

	pickup, _ := cmd.Flags().GetString("pickup")
	destination, _ := cmd.Flags().GetString("destination")
	price, _ := cmd.Flags().GetFloat64("price")
	departure, _ := cmd.Flags().GetString("departure")

	if pickup == "" || destination == "" || departure == "" {
		return fmt.Errorf("--pickup, --destination, and --departure are required")
	}
	departureTime, err := time.Parse(time.RFC3339, departure)
	if err != nil {
		return fmt.Errorf("invalid --departure, want RFC3339: %w", err)
	}

	payload := map[string]interface{}{
		"pickupLocation": pickup,
		"destination":    destination,
		"price":          price,
		"departureTime":  departureTime,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequest("POST", config.APIURL()+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
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
		ID      int    `json:"id"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	fmt.Printf("Trip %d created.\n", result.ID)
	return nil
}
