package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jadenstock/CocktailScraper/internal/auth"
	"github.com/jadenstock/CocktailScraper/internal/bar"
	"github.com/jadenstock/CocktailScraper/internal/cost"
	"github.com/jadenstock/CocktailScraper/internal/db"
	"github.com/jadenstock/CocktailScraper/internal/discovery"
	"github.com/jadenstock/CocktailScraper/internal/llm"
	"github.com/jadenstock/CocktailScraper/internal/search"
	"github.com/jadenstock/CocktailScraper/internal/storage"

	"github.com/joho/godotenv"
)

const usageText = `barctl - cocktail bar research runner

Commands:
  research   -city <name> -num-bars <n>    run a discovery pass
  bars       -city <name>                  list stored bars
  show       -city <name> -id <id>         show one bar
  usage      [-provider p] [-city c] [-from t] [-to t]   aggregate cost report
  clean-logs                               clear the cost ledger
  reset      [-city <name>]                remove stored bars
  export     -city <name> [-publish]       CSV export (optionally to R2)
  token      [-subject s]                  mint an operator JWT
`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using environment variables")
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "research":
		err = runResearch(ctx, os.Args[2:])
	case "bars":
		err = runBars(ctx, os.Args[2:])
	case "show":
		err = runShow(ctx, os.Args[2:])
	case "usage":
		err = runUsage(ctx, os.Args[2:])
	case "clean-logs":
		err = runCleanLogs(ctx)
	case "reset":
		err = runReset(ctx, os.Args[2:])
	case "export":
		err = runExport(ctx, os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func openStore() (*bar.Store, *cost.Ledger) {
	pgDB := db.ConnectPostgres()
	store := bar.NewStore(bar.NewPostgresRepository(pgDB))
	ledger := cost.NewLedger(cost.NewPostgresRepository(pgDB), cost.DefaultRateTable())
	return store, ledger
}

// --------------------------------------------------
// research
// --------------------------------------------------
func runResearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("research", flag.ExitOnError)
	city := fs.String("city", "Seattle", "city to research")
	numBars := fs.Int("num-bars", 3, "number of bars to find")
	fs.Parse(args)

	store, ledger := openStore()

	var provider search.Provider
	if os.Getenv("BRAVE_API_KEY") != "" {
		provider = search.NewBrave()
	} else {
		log.Println("BRAVE_API_KEY not set, using DuckDuckGo")
		provider = search.NewDuckDuckGo()
	}

	svc := discovery.NewService(store, ledger, provider, llm.NewGeminiClient())

	report, err := svc.Discover(ctx, *city, *numBars)
	if report != nil {
		fmt.Printf("\n%s: %d bars (%d inserted, %d merged) in %d attempts, cost $%s\n",
			report.City, len(report.Bars), report.Inserted, report.Merged,
			report.Attempts, report.RunCost)
		for _, b := range report.Bars {
			fmt.Printf("  - %s", b.Name)
			if b.Website != "" {
				fmt.Printf("  (%s)", b.Website)
			}
			fmt.Println()
		}
		for _, step := range report.FailedSteps {
			fmt.Printf("  ! skipped: %s\n", step)
		}
	}
	return err
}

// --------------------------------------------------
// bars / show
// --------------------------------------------------
func runBars(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bars", flag.ExitOnError)
	city := fs.String("city", "", "city to list")
	fs.Parse(args)

	if *city == "" {
		return fmt.Errorf("-city is required")
	}

	store, _ := openStore()
	records, err := store.List(ctx, *city)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d bars\n", *city, len(records))
	for _, rec := range records {
		fmt.Printf("  %s  %s  discovered %s\n",
			rec.ID, rec.Name, rec.DiscoveredAt.Format("2006-01-02"))
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	city := fs.String("city", "", "city")
	id := fs.String("id", "", "bar id")
	fs.Parse(args)

	if *city == "" || *id == "" {
		return fmt.Errorf("-city and -id are required")
	}

	store, _ := openStore()
	rec, err := store.Get(ctx, *city, *id)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", rec.Name, rec.City)
	if rec.Description != "" {
		fmt.Printf("  %s\n", rec.Description)
	}
	if rec.Website != "" {
		fmt.Printf("  website: %s\n", rec.Website)
	}
	if rec.MenuURL != "" {
		fmt.Printf("  menu:    %s\n", rec.MenuURL)
	}
	fmt.Printf("  discovered: %s\n", rec.DiscoveredAt.Format(time.RFC3339))
	for _, q := range rec.SourceQueries {
		fmt.Printf("  query: %s\n", q)
	}
	return nil
}

// --------------------------------------------------
// usage / clean-logs
// --------------------------------------------------
func runUsage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("usage", flag.ExitOnError)
	provider := fs.String("provider", "", "filter by provider")
	city := fs.String("city", "", "filter by city")
	from := fs.String("from", "", "RFC3339 lower bound")
	to := fs.String("to", "", "RFC3339 upper bound")
	fs.Parse(args)

	_, ledger := openStore()
	filter := cost.Filter{Provider: *provider, City: *city}
	if *from != "" {
		t, err := time.Parse(time.RFC3339, *from)
		if err != nil {
			return fmt.Errorf("invalid -from: %w", err)
		}
		filter.From = t
	}
	if *to != "" {
		t, err := time.Parse(time.RFC3339, *to)
		if err != nil {
			return fmt.Errorf("invalid -to: %w", err)
		}
		filter.To = t
	}

	total, err := ledger.Total(ctx, filter)
	if err != nil {
		return err
	}
	breakdown, err := ledger.Breakdown(ctx, filter)
	if err != nil {
		return err
	}
	entries, err := ledger.Entries(ctx, filter)
	if err != nil {
		return err
	}

	fmt.Println("Usage Statistics:")
	fmt.Printf("  API Calls:  %d\n", len(entries))
	for p, c := range breakdown {
		fmt.Printf("  %s: $%s\n", p, c)
	}
	fmt.Printf("  Total Cost: $%s\n", total)
	return nil
}

func runCleanLogs(ctx context.Context) error {
	_, ledger := openStore()

	removed, err := ledger.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d cost entries\n", removed)
	return nil
}

// --------------------------------------------------
// reset
// --------------------------------------------------
func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	city := fs.String("city", "", "city to reset (empty = everything)")
	fs.Parse(args)

	store, _ := openStore()
	removed, err := store.Reset(ctx, *city)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d bars\n", removed)
	return nil
}

// --------------------------------------------------
// export
// --------------------------------------------------
func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	city := fs.String("city", "", "city to export")
	publish := fs.Bool("publish", false, "upload the CSV to R2")
	fs.Parse(args)

	if *city == "" {
		return fmt.Errorf("-city is required")
	}

	store, _ := openStore()
	records, err := store.List(ctx, *city)
	if err != nil {
		return err
	}

	data, err := bar.ExportCSV(records)
	if err != nil {
		return err
	}

	if !*publish {
		os.Stdout.Write(data)
		return nil
	}

	r2, err := storage.NewR2Client(ctx)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("exports/bars-%s-%s.csv", *city, time.Now().UTC().Format("20060102-150405"))
	url, err := r2.Upload(ctx, key, bytes.NewReader(data), "text/csv")
	if err != nil {
		return err
	}

	fmt.Printf("published %d bars to %s\n", len(records), url)
	return nil
}

// --------------------------------------------------
// token
// --------------------------------------------------
func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("subject", "operator", "token subject")
	fs.Parse(args)

	token, err := auth.GenerateToken(*subject)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
