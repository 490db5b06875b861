//go:build ignore

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/deals-backend/config"
	"github.com/fenilmodi00/deals-backend/database"
	"github.com/fenilmodi00/deals-backend/services"
)

func main() {
	fmt.Printf("🏥 Deal Scraper Health Check - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println(strings.Repeat("=", 50))

	cfg := config.LoadConfig()

	// Quick tests
	healthScore := 0
	totalTests := 4

	// Test 1: Catalog listing
	fmt.Print("📡 Catalog Listing: ")
	scraper := services.NewCatalogScraper(cfg.CatalogBaseURL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if products, err := scraper.FetchProducts(ctx); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		fmt.Printf("✅ OK (%d products)\n", len(products))
		healthScore++
	}

	// Test 2: Database
	fmt.Print("🗄️  Database: ")
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		fmt.Println("✅ OK")
		healthScore++
		database.Close()
	}

	// Test 3: Snapshot Data
	fmt.Print("📊 Snapshot Data: ")
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		store := database.NewDealStore(database.DB)
		if deals, err := store.ReadAll(context.Background()); err != nil {
			fmt.Printf("❌ FAILED (%v)\n", err)
		} else {
			fmt.Printf("✅ OK (%d snapshot deals)\n", len(deals))
			healthScore++
		}
		database.Close()
	}

	// Test 4: Notification Config
	fmt.Print("📧 Notification Config: ")
	if cfg.SMTPHost == "" || len(cfg.DealRecipients) == 0 {
		fmt.Println("❌ FAILED (SMTP host or recipients not configured)")
	} else {
		fmt.Printf("✅ OK (%d recipients)\n", len(cfg.DealRecipients))
		healthScore++
	}

	// Overall health
	fmt.Println(strings.Repeat("-", 50))
	healthPercent := float64(healthScore) / float64(totalTests) * 100

	if healthScore == totalTests {
		fmt.Printf("🎉 SYSTEM HEALTHY: %d/%d tests passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	} else if healthScore >= totalTests/2 {
		fmt.Printf("⚠️  SYSTEM DEGRADED: %d/%d tests passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	} else {
		fmt.Printf("❌ SYSTEM UNHEALTHY: %d/%d tests passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	}

	fmt.Printf("⏰ Check completed at: %s\n", time.Now().Format("15:04:05"))
}
