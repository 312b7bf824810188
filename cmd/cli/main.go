package main

import (
	"fmt"
	"os"

	"github.com/openride/rideshare-api/cmd/cli/root"

	_ "github.com/openride/rideshare-api/cmd/cli/trips"
	_ "github.com/openride/rideshare-api/cmd/cli/users"
)

func main() {
	if err := root.GetRoot().Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
