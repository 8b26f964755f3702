// Command seed-db loads a product catalog from a JSON file (optionally
// gzip-compressed) and upserts it into the database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dstepanov-dev/order-stock-api/internal/storage/postgres"
)

const insertWorkers = 4

// seedProduct mirrors a single entry of the products JSON file.
type seedProduct struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Price      string `json:"price"`
	StockLevel int32  `json:"stockLevel"`
}

func main() {
	var (
		productsFile string
		databaseURL  string
	)

	flag.StringVar(&productsFile, "products", "data/products.json", "path to products JSON file (.gz supported)")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, productsFile, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, productsFile, databaseURL string) error {
	products, err := readProducts(productsFile)
	if err != nil {
		return errors.Wrapf(err, "read %s", productsFile)
	}
	if len(products) == 0 {
		slog.Info("no products to seed")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("seeding products", slog.Int("count", len(products)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(insertWorkers)
	repo := postgres.NewProductRepository(pool)
	for _, p := range products {
		g.Go(func() error {
			price, err := decimal.NewFromString(p.Price)
			if err != nil {
				return errors.Wrapf(err, "parse price for product %s", p.ID)
			}
			if err := repo.Upsert(ctx, p.ID, p.Name, price, p.StockLevel); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			return nil
		})
	}

	return g.Wait()
}

// readProducts parses the products file, transparently decompressing .gz input.
func readProducts(path string) ([]seedProduct, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var products []seedProduct
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}

	return products, nil
}
