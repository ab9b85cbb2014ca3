package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/models"
)

// seed-admin bootstraps a business with its first user. Meant for fresh
// deployments where the register endpoint is not exposed yet.
func main() {
	businessName := flag.String("business", "", "Business name (required)")
	timezone := flag.String("timezone", "UTC", "Reporting time zone, e.g. Asia/Yangon")
	name := flag.String("name", "Admin", "Display name of the user")
	username := flag.String("username", "", "Login username, must be an email (required)")
	password := flag.String("password", "", "Login password, min 8 chars (required)")
	flag.Parse()

	if *businessName == "" || *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if err := models.MigrateTable(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}

	business, user, err := models.RegisterBusiness(ctx,
		&models.NewBusiness{
			Name:              *businessName,
			ReportingTimeZone: *timezone,
		},
		&models.NewUser{
			Name:     *name,
			Username: *username,
			Password: *password,
		})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap business: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("business=%s user=%s\n", business.ID.String(), user.Username)
}
