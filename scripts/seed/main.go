// Seeds provider profiles into the DynamoDB table so the public
// directory has data to serve in a fresh environment.
//
// Usage: go run scripts/seed/main.go <providers-file.json>
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/pbhms/pbhms/cmd/mainconfig"
	appconfig "github.com/pbhms/pbhms/internal/config"
	"github.com/pbhms/pbhms/internal/providers"
	"github.com/pbhms/pbhms/internal/store"
	"github.com/pbhms/pbhms/pkg/logging"
)

type seedFile struct {
	Providers []providers.Profile `json:"providers"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/seed/main.go <providers-file.json>")
		fmt.Println("Example: go run scripts/seed/main.go testdata/sample-providers.json")
		os.Exit(1)
	}

	cfg := appconfig.Load()

	fmt.Printf("🌱 Seeding Provider Directory\n")
	fmt.Printf("=============================\n")
	fmt.Printf("Table: %s\n", cfg.TableName)
	fmt.Printf("Providers file: %s\n\n", os.Args[1])

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("❌ Error reading file: %v\n", err)
		os.Exit(1)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		fmt.Printf("❌ Error parsing JSON: %v\n", err)
		os.Exit(1)
	}
	if len(seed.Providers) == 0 {
		fmt.Println("❌ No providers found in file")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		fmt.Printf("❌ Error loading AWS config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Default()
	table := store.NewTable(dynamodb.NewFromConfig(awsCfg), cfg.TableName, logger)
	repo := providers.NewRepository(table, logger)

	seeded := 0
	for _, p := range seed.Providers {
		if p.ProviderID == "" || p.Email == "" {
			fmt.Printf("⚠️  Skipping provider with missing id or email: %+v\n", p)
			continue
		}
		if err := repo.Upsert(ctx, &p); err != nil {
			fmt.Printf("❌ Error seeding %s: %v\n", p.Email, err)
			os.Exit(1)
		}
		fmt.Printf("✅ Seeded %s %s (%s)\n", p.GivenName, p.FamilyName, p.Specialty)
		seeded++
	}

	fmt.Printf("\nDone. %d provider(s) seeded.\n", seeded)
}
