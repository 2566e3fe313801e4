package main

import (
	"log"
	"os"
	"time"

	"github.com/jadenstock/CocktailScraper/internal/bar"
	"github.com/jadenstock/CocktailScraper/internal/cost"
	"github.com/jadenstock/CocktailScraper/internal/db"
	"github.com/jadenstock/CocktailScraper/internal/discovery"
	"github.com/jadenstock/CocktailScraper/internal/llm"
	"github.com/jadenstock/CocktailScraper/internal/middleware"
	"github.com/jadenstock/CocktailScraper/internal/search"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {

	// ───────────────────────── ENV ─────────────────────────
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	required := []string{
		"JWT_SECRET",
		"DATABASE_URL",
		"GEMINI_API_KEY",
		"GEMINI_MODEL",
	}

	for _, k := range required {
		if os.Getenv(k) == "" {
			log.Fatalf("❌ Missing env var: %s", k)
		}
	}

	// ───────────────────────── DB ─────────────────────────
	pgDB := db.ConnectPostgres()
	defer pgDB.Close()

	// ───────────────────────── GIN ─────────────────────────
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// ───────────────────────── CORE REPOS ─────────────────────────
	barRepo := bar.NewPostgresRepository(pgDB)
	costRepo := cost.NewPostgresRepository(pgDB)

	// ───────────────────────── SERVICES ─────────────────────────
	barStore := bar.NewStore(barRepo)
	ledger := cost.NewLedger(costRepo, cost.DefaultRateTable())

	// Brave when a key is configured, free DuckDuckGo otherwise.
	var provider search.Provider
	if os.Getenv("BRAVE_API_KEY") != "" {
		provider = search.NewBrave()
	} else {
		log.Println("BRAVE_API_KEY not set, using DuckDuckGo")
		provider = search.NewDuckDuckGo()
	}

	discoveryService := discovery.NewService(
		barStore,
		ledger,
		provider,
		llm.NewGeminiClient(),
	)

	// ───────────────────────── HANDLERS ─────────────────────────
	barHandler := bar.NewHandler(barStore)
	costHandler := cost.NewHandler(ledger)
	discoveryHandler := discovery.NewHandler(discoveryService)

	// ───────────────────────── PUBLIC ROUTES ─────────────────────────
	r.GET("/bars/:city", barHandler.List)
	r.GET("/bars/:city/export", barHandler.Export)
	r.GET("/bars/:city/:id", barHandler.Get)
	r.GET("/stats", barHandler.Stats)

	r.GET("/costs/total", costHandler.Total)
	r.GET("/costs/entries", costHandler.Entries)

	// ───────────────────────── OPERATOR ROUTES ─────────────────────────
	ops := r.Group("/")
	ops.Use(middleware.AuthMiddleware())
	{
		ops.POST("/discover", discoveryHandler.Discover)
		ops.PATCH("/bars/:city/:id/menu", barHandler.UpdateMenu)
		ops.DELETE("/bars/:city", barHandler.Reset)
		ops.DELETE("/bars", barHandler.Reset)
		ops.DELETE("/costs", costHandler.Clear)
	}

	// ───────────────────────── HEALTH ─────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ───────────────────────── START ─────────────────────────
	log.Println("🚀 API running at http://localhost:8000")
	r.Run(":8000")
}
