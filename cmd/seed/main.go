package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/abdulbosit19980204/journal/internal/config"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/infra/api"
	pg "github.com/abdulbosit19980204/journal/internal/infra/db/postgres"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"
	"github.com/abdulbosit19980204/journal/internal/usecase"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	adminID := flag.String("admin", "", "user id to promote to admin")
	adminEmail := flag.String("admin-email", "", "email recorded for the admin user")
	finance := flag.Bool("finance", false, "also grant the finance role to -admin")
	mint := flag.Duration("token-ttl", 0, "print a signed token for -admin valid for this long")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Database.Migrate {
		if err := pg.Migrate(cfg.Database.URL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	users := pg.NewUserRepo(pool)
	tm := pg.NewTxManager(pool)
	planUC := usecase.NewPlanUseCase(pg.NewPlanRepo(pool), logger)
	userUC := usecase.NewUserUseCase(users, tm, logger)

	// ---- Plans ----
	plans, err := planUC.ListAll(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (price=%s, limit=%d)\n", p.Name, p.Price.StringFixed(2), p.ArticleLimit)
		}
	} else {
		seed := []struct {
			Name  string
			Price string
			Limit int
			Desc  string
		}{
			{"Basic Researcher", "0.00", 1, "One submission per period"},
			{"Professional Author", "9.99", 5, "Five submissions per period"},
			{"Institution Unlimited", "49.99", 0, "Unlimited submissions"},
		}
		for _, s := range seed {
			p, err := model.NewSubscriptionPlan(uuid.NewString(), s.Name, decimal.RequireFromString(s.Price), s.Limit, s.Desc)
			if err != nil {
				log.Fatalf("plan %q: %v", s.Name, err)
			}
			if err := planUC.Create(ctx, p); err != nil {
				log.Fatalf("create plan %q: %v", s.Name, err)
			}
			fmt.Printf("seeded: %s (id=%s, price=%s, limit=%d)\n", p.Name, p.ID, p.Price.StringFixed(2), p.ArticleLimit)
		}
	}

	// ---- Admin bootstrap ----
	if *adminID == "" {
		fmt.Println("Seeding complete.")
		return
	}
	if _, err := userUC.RegisterOrFetch(ctx, *adminID, *adminEmail); err != nil {
		log.Fatalf("register admin: %v", err)
	}
	// SetRoles needs an existing admin, so the first one is written directly.
	err = tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		u, err := users.LockForUpdate(ctx, tx, *adminID)
		if err != nil {
			return err
		}
		u.IsAdmin = true
		u.IsFinanceAdmin = *finance
		return users.Save(ctx, tx, u)
	})
	if err != nil {
		log.Fatalf("promote admin: %v", err)
	}
	fmt.Printf("promoted %s (finance=%v)\n", *adminID, *finance)

	if *mint > 0 {
		auth := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, userUC, logger)
		role := "admin"
		if *finance {
			role = "finance"
		}
		tok, err := auth.Mint(*adminID, *adminEmail, role, *mint)
		if err != nil {
			log.Fatalf("mint token: %v", err)
		}
		fmt.Println(tok)
	}
	fmt.Println("Seeding complete.")
}
