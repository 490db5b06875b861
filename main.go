package main

import (
	"log"
	"time"

	"github.com/fenilmodi00/deals-backend/config"
	"github.com/fenilmodi00/deals-backend/database"
	"github.com/fenilmodi00/deals-backend/handlers"
	"github.com/fenilmodi00/deals-backend/jobs"
	"github.com/fenilmodi00/deals-backend/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to database
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate("database/schema.sql"); err != nil {
		log.Printf("Migration warning: %v", err)
	}

	// Initialize services
	scraperConfig := config.DefaultScraperConfig()
	catalogScraper := services.NewCatalogScraper(cfg.CatalogBaseURL, scraperConfig)
	dealEngine := services.NewDealEngine(cfg.DealResultLimit)
	reportFormatter := services.NewReportFormatter()
	emailNotifier := services.NewEmailNotifier(services.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	})
	dealStore := database.NewDealStore(database.DB)

	log.Println("Deal backend services initialized:")
	log.Printf("  - Catalog scraper (base URL: %s, retries: %d, politeness delay: %v)",
		cfg.CatalogBaseURL, scraperConfig.MaxRetryAttempts, scraperConfig.PolitenessDelay)
	log.Printf("  - Deal engine (result limit: %d)", cfg.DealResultLimit)
	log.Printf("  - Email notifier (recipients: %d)", len(cfg.DealRecipients))

	// Initialize the deal update job
	dealJob := jobs.NewDealUpdateJob(
		catalogScraper,
		dealEngine,
		reportFormatter,
		dealStore,
		emailNotifier,
		cfg.DealResultLimit,
		cfg.DealRecipients,
	)

	// Initialize handlers
	dealHandler := handlers.NewDealHandler(dealStore, dealJob)
	adminHandler := handlers.NewAdminHandler(dealJob)

	// Start the scheduled deal update: run immediately on startup, then on
	// the configured interval. Run serializes itself, so a manual admin
	// trigger overlapping a tick is rejected rather than run twice.
	go func() {
		if err := dealJob.Run(); err != nil {
			logrus.Errorf("Startup deal update run failed: %v", err)
		}

		ticker := time.NewTicker(cfg.GetScrapeInterval())
		for range ticker.C {
			if err := dealJob.Run(); err != nil {
				logrus.Errorf("Scheduled deal update run failed: %v", err)
			}
		}
	}()

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	// Routes
	api := app.Group("/api/v1")

	// Deal Routes
	api.Get("/deals", dealHandler.GetDeals)
	api.Get("/report/latest", dealHandler.GetLatestReport)

	// Admin Routes
	admin := api.Group("/admin", handlers.RequireAdminToken(cfg.AdminToken))
	admin.Post("/scrape", adminHandler.TriggerDealUpdate)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
