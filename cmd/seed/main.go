// Command seed fills the storefront database with a demo catalog: the
// pharmacy categories, a handful of hand-written products, optional bulk
// generated products, two coupons and two shipping zones.
//
// Rows are keyed by deterministic ids, so running it twice is harmless.
//
//	seed -products 10000
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/rxstore/internal/config"
	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/repository/postgres"
	"github.com/utafrali/rxstore/migrations"
	"github.com/utafrali/rxstore/pkg/database"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
	"github.com/utafrali/rxstore/pkg/logger"
	"github.com/utafrali/rxstore/pkg/slug"
)

// seedNamespace scopes the deterministic ids of seeded rows.
var seedNamespace = uuid.MustParse("2f0a6b58-4c5e-4b8e-9a55-0d2c7f3e1b11")

func seedID(kind, key string) string {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+key)).String()
}

// --------------------------------------------------------------------------
// Seed data definitions
// --------------------------------------------------------------------------

type categoryDef struct {
	name        string
	description string
}

type productDef struct {
	name     string
	category string
	price    int64 // cents
	original int64 // cents, zero when not on sale
	brand    string
	tags     []string
	featured bool
}

var categories = []categoryDef{
	{"Medicamentos", "Medicamentos isentos de prescrição"},
	{"Vitaminas", "Vitaminas e minerais"},
	{"Suplementação", "Suplementos alimentares"},
	{"Dermocosméticos", "Cuidados com a pele"},
	{"Higiene", "Higiene pessoal"},
}

var products = []productDef{
	{"Vitamina C 500mg", "vitaminas", 2990, 3490, "Nutrivita", []string{"imunidade", "vitamina c"}, true},
	{"Vitamina D3 2000UI", "vitaminas", 4590, 0, "Nutrivita", []string{"vitamina d", "ossos"}, true},
	{"Ômega 3 1000mg", "suplementacao", 6990, 7990, "Oceanis", []string{"omega", "coração"}, true},
	{"Whey Protein Baunilha", "suplementacao", 15990, 0, "ForçaMax", []string{"proteína", "treino"}, false},
	{"Dipirona 500mg 10 comprimidos", "medicamentos", 890, 0, "Genérico", []string{"dor", "febre"}, false},
	{"Protetor Solar FPS 50", "dermocosmeticos", 5990, 6990, "Solaris", []string{"sol", "pele"}, true},
	{"Hidratante Facial", "dermocosmeticos", 4290, 0, "Solaris", []string{"pele", "hidratação"}, false},
	{"Escova Dental Macia", "higiene", 1290, 0, "Sorriso", []string{"dentes"}, false},
}

var coupons = []domain.Coupon{
	{Code: "PROMO10", Description: "10% de desconto", Type: domain.CouponPercentage, Value: decimal.NewFromInt(10), Active: true},
	{Code: "FRETE20", Description: "R$ 20 de desconto", Type: domain.CouponFixed, Value: decimal.NewFromInt(20), MinPurchase: 10000, Active: true},
}

var zones = []domain.ShippingZone{
	{
		Name:                "Grande São Paulo",
		States:              []string{"SP"},
		PostalRanges:        []domain.PostalRange{{Start: "01000000", End: "09999999"}},
		StandardPrice:       990,
		ExpressPrice:        1990,
		StandardDays:        "2-3 dias úteis",
		ExpressDays:         "1 dia útil",
		FreeShippingMinimum: 19900,
		Position:            1,
	},
	{
		Name:         "Região Sul",
		States:       []string{"PR", "SC", "RS"},
		PostalRanges: []domain.PostalRange{{Start: "80000000", End: "99999999"}},
		Position:     2,
	},
}

// --------------------------------------------------------------------------
// main
// --------------------------------------------------------------------------

func main() {
	bulk := flag.Int("products", 0, "number of generated products to add on top of the demo catalog")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("rxstore-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, *bulk, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("seed complete")
}

func run(ctx context.Context, cfg *config.Config, bulk int, log *slog.Logger) error {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	s := &seeder{
		categories: postgres.NewCategoryRepository(pool),
		products:   postgres.NewProductRepository(pool),
		coupons:    postgres.NewCouponRepository(pool),
		zones:      postgres.NewShippingZoneRepository(pool),
		now:        time.Now().UTC(),
		log:        log,
	}

	for _, step := range []struct {
		name string
		fn   func(context.Context) error
	}{
		{"categories", s.seedCategories},
		{"products", s.seedProducts},
		{"coupons", s.seedCoupons},
		{"shipping zones", s.seedZones},
		{"generated products", func(ctx context.Context) error { return s.seedGenerated(ctx, bulk) }},
	} {
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
	}
	return nil
}

type seeder struct {
	categories *postgres.CategoryRepository
	products   *postgres.ProductRepository
	coupons    *postgres.CouponRepository
	zones      *postgres.ShippingZoneRepository
	now        time.Time
	log        *slog.Logger

	created, skipped int
}

// keep counts a create, treating a duplicate as a row left by an earlier run.
func (s *seeder) keep(err error) error {
	switch {
	case err == nil:
		s.created++
	case errors.Is(err, apperrors.ErrAlreadyExists):
		s.skipped++
	default:
		return err
	}
	return nil
}

func (s *seeder) report(what string) {
	s.log.Info("seeded "+what, slog.Int("created", s.created), slog.Int("skipped", s.skipped))
	s.created, s.skipped = 0, 0
}

func (s *seeder) seedCategories(ctx context.Context) error {
	for _, c := range categories {
		sl := slug.Generate(c.name)
		err := s.categories.Create(ctx, &domain.Category{
			ID:          seedID("category", sl),
			Name:        c.name,
			Slug:        sl,
			Description: c.description,
			CreatedAt:   s.now,
			UpdatedAt:   s.now,
		})
		if err := s.keep(err); err != nil {
			return fmt.Errorf("category %q: %w", c.name, err)
		}
	}
	s.report("categories")
	return nil
}

func (s *seeder) seedProducts(ctx context.Context) error {
	for _, def := range products {
		p := &domain.Product{
			ID:          seedID("product", def.name),
			Name:        def.name,
			Slug:        slug.Generate(def.name),
			Price:       def.price,
			Category:    def.category,
			Tags:        def.tags,
			InStock:     true,
			Featured:    def.featured,
			Brand:       def.brand,
			Description: def.name + " " + def.brand,
			CreatedAt:   s.now,
			UpdatedAt:   s.now,
		}
		if def.original > 0 {
			original := def.original
			discount := int((def.original - def.price) * 100 / def.original)
			p.OriginalPrice = &original
			p.DiscountPercent = &discount
		}
		if err := s.keep(s.products.Create(ctx, p)); err != nil {
			return fmt.Errorf("product %q: %w", def.name, err)
		}
	}
	s.report("products")
	return nil
}

func (s *seeder) seedCoupons(ctx context.Context) error {
	for _, c := range coupons {
		c.ID = seedID("coupon", c.Code)
		c.CreatedAt, c.UpdatedAt = s.now, s.now
		if err := s.keep(s.coupons.Create(ctx, &c)); err != nil {
			return fmt.Errorf("coupon %q: %w", c.Code, err)
		}
	}
	s.report("coupons")
	return nil
}

func (s *seeder) seedZones(ctx context.Context) error {
	for _, z := range zones {
		z.ID = seedID("zone", z.Name)
		z.CreatedAt, z.UpdatedAt = s.now, s.now
		// Zones have no unique column besides the id.
		_, err := s.zones.GetByID(ctx, z.ID)
		switch {
		case err == nil:
			s.skipped++
			continue
		case !errors.Is(err, apperrors.ErrNotFound):
			return fmt.Errorf("shipping zone %q: %w", z.Name, err)
		}
		if err := s.keep(s.zones.Create(ctx, &z)); err != nil {
			return fmt.Errorf("shipping zone %q: %w", z.Name, err)
		}
	}
	s.report("shipping zones")
	return nil
}

// --------------------------------------------------------------------------
// Generated products
// --------------------------------------------------------------------------

var (
	genForms     = []string{"Cápsulas", "Comprimidos", "Gotas", "Sachês", "Gel", "Spray"}
	genActives   = []string{"Magnésio", "Zinco", "Colágeno", "Melatonina", "Biotina", "Cálcio", "Ferro", "Probióticos"}
	genStrengths = []string{"100mg", "250mg", "500mg", "1g", "30 unidades", "60 unidades"}
	genBrands    = []string{"Nutrivita", "Oceanis", "ForçaMax", "Solaris", "Vitalis"}
)

// seedGenerated adds n products with stable names and ids, so a second run
// with the same n creates nothing new.
func (s *seeder) seedGenerated(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(42))
	for i := range n {
		active := genActives[rng.Intn(len(genActives))]
		name := fmt.Sprintf("%s %s %s #%d",
			active,
			genStrengths[rng.Intn(len(genStrengths))],
			genForms[rng.Intn(len(genForms))],
			i+1,
		)
		category := "suplementacao"
		if rng.Intn(3) == 0 {
			category = "vitaminas"
		}
		p := &domain.Product{
			ID:          seedID("generated", name),
			Name:        name,
			Slug:        slug.Generate(name),
			Price:       int64(990 + rng.Intn(30000)),
			Category:    category,
			Tags:        []string{slug.Generate(active)},
			InStock:     rng.Intn(10) > 0,
			Brand:       genBrands[rng.Intn(len(genBrands))],
			Rating:      float64(30+rng.Intn(21)) / 10,
			ReviewCount: rng.Intn(500),
			CreatedAt:   s.now,
			UpdatedAt:   s.now,
		}
		if err := s.keep(s.products.Create(ctx, p)); err != nil {
			return fmt.Errorf("generated product %q: %w", name, err)
		}
		if (i+1)%1000 == 0 {
			s.log.Info("generated products progress", slog.Int("done", i+1), slog.Int("total", n))
		}
	}
	s.report("generated products")
	return nil
}
