// Command movers recomputes the ranked movers view once and exits. It is
// meant to be invoked on a schedule (cron or similar). The -seed flag loads
// two days of synthetic daily bars first, as a development convenience.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"stockboard/internal/database"
	"stockboard/internal/models"
	"stockboard/internal/quotes"
	"stockboard/internal/service"
)

func main() {
	period := flag.String("period", "daily", "period label for the ranked set")
	day := flag.String("day", "", "target day YYYY-MM-DD, defaults to today (UTC)")
	seed := flag.Bool("seed", false, "load synthetic bars before running (development only)")
	flag.Parse()

	godotenv.Load()
	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		log.Fatal("POSTGRES_URL is required")
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	logger := logrus.New()
	repo := database.New(db, logger)
	ctx := context.Background()

	target := time.Now().UTC().Truncate(24 * time.Hour)
	if *day != "" {
		if target, err = time.Parse("2006-01-02", *day); err != nil {
			log.Fatalf("invalid -day: %v", err)
		}
	}

	if *seed {
		if err := seedBars(ctx, repo, target); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
		logger.Info("synthetic bars seeded")
	}

	calc := service.NewMoversCalculator(repo, logger)
	if err := calc.Run(ctx, target, *period); err != nil {
		log.Fatalf("movers run failed: %v", err)
	}
	logger.Infof("movers recomputed for %s (%s)", target.Format("2006-01-02"), *period)
}

var seedSymbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "TSLA", "META", "JPM", "V", "JNJ", "XOM", "WMT"}

// seedBars writes yesterday/today close pairs with moves large enough that
// most symbols clear the 1% threshold.
func seedBars(ctx context.Context, repo *database.Repo, day time.Time) error {
	ref := quotes.NewStaticReference()
	bars := []models.Bar{}
	for _, sym := range seedSymbols {
		p := ref.Profile(sym)
		base := 20 + rand.Float64()*480
		move := (rand.Float64() - 0.45) * 0.12 // -5.4%..+6.6%
		today := base * (1 + move)
		for d, c := range map[time.Time]float64{day.AddDate(0, 0, -1): base, day: today} {
			bars = append(bars, models.Bar{
				Symbol: sym, Timestamp: d,
				Open: c * 0.995, High: c * 1.01, Low: c * 0.99, Close: c,
				Volume:   int64(1e6 + rand.Intn(9e6)),
				Exchange: p.Exchange, Sector: p.Sector,
			})
		}
	}
	return repo.InsertDailyBars(ctx, bars)
}
