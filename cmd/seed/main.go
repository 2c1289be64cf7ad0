// Command seed creates a demo festival, funds a few wallets and prints bearer
// tokens for them so the API can be exercised by hand.
package main

import (
	"context"
	"fmt"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/config"
	"ms-marketplace/internal/database"
	"ms-marketplace/internal/festivals"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/payment"
	"ms-marketplace/internal/roles"
	ticket_db "ms-marketplace/internal/tickets/db"
	tickets "ms-marketplace/internal/tickets/service"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	name := pflag.String("name", "Summer Sound Festival", "festival name")
	symbol := pflag.String("symbol", "SSF", "festival symbol")
	organiser := pflag.String("organiser", "0x00000000000000000000000000000000000000a1", "organiser wallet")
	verifier := pflag.String("verifier", "0x00000000000000000000000000000000000000c3", "gate staff wallet granted VERIFIER")
	wallets := pflag.StringSlice("wallet", []string{
		"0x0000000000000000000000000000000000000a11",
		"0x0000000000000000000000000000000000000b0b",
	}, "customer wallets to fund")
	fund := pflag.String("fund", "500.00", "amount credited to each customer wallet")
	price := pflag.String("price", "100.00", "face value of primary sales")
	mintCount := pflag.Int("mint", 3, "tickets minted to the first customer wallet")
	ttl := pflag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed bearer tokens")
	pflag.Parse()

	log := logger.New(os.Stdout, nil, logger.ParseLevel(cfg.Log.Level))
	if err := seed(cfg, log, seedOptions{
		name: *name, symbol: *symbol, organiser: *organiser, verifier: *verifier,
		wallets: *wallets, fund: *fund, price: *price, mint: *mintCount, ttl: *ttl,
	}); err != nil {
		log.Error("SEED", err.Error())
		os.Exit(1)
	}
}

type seedOptions struct {
	name, symbol, organiser, verifier string
	wallets                           []string
	fund, price                       string
	mint                              int
	ttl                               time.Duration
}

func seed(cfg *config.Config, log *logger.Logger, opts seedOptions) error {
	ctx := context.Background()
	amount, err := models.ParseAmount(opts.fund)
	if err != nil {
		return err
	}

	faceValue, err := models.ParseAmount(opts.price)
	if err != nil {
		return err
	}

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	store := &ticket_db.DB{Bun: bunDB}
	if cfg.Database.Driver != "postgres" {
		if err := store.CreateSchema(ctx); err != nil {
			return err
		}
	}

	clk := clock.NewSystem()
	roleService := roles.NewService(store, clk, log)
	registry := tickets.NewTicketService(store, roleService, clk, log)
	festivalService := festivals.NewService(store, roleService, festivals.Defaults{
		Marketplace:         cfg.Marketplace.Operator,
		MaxTicketsPerWallet: cfg.Marketplace.DefaultMaxTicketsPerWallet,
		MaxResalePercentage: cfg.Marketplace.DefaultMaxResalePercentage,
		RoyaltyPercentage:   cfg.Marketplace.DefaultRoyaltyPercentage,
	}, clk, log)

	festival, err := festivalService.Create(ctx, festivals.CreateParams{Name: opts.name, Symbol: opts.symbol, TicketPrice: faceValue}, opts.organiser)
	if err != nil {
		return fmt.Errorf("create festival: %w", err)
	}
	if err := roleService.Grant(ctx, festival.ID, models.RoleVerifier, opts.verifier, opts.organiser); err != nil {
		return fmt.Errorf("grant verifier: %w", err)
	}

	var ledger payment.Ledger = payment.NewDBLedger(store, clk, log)
	if cfg.Marketplace.Ledger == "redis" {
		client, err := payment.InitializeRedis(cfg.Redis.Addr, log)
		if err != nil {
			return err
		}
		defer client.Close()
		ledger = payment.NewRedisLedger(client, log)
	}
	for _, w := range opts.wallets {
		if err := ledger.Deposit(ctx, w, amount); err != nil {
			return fmt.Errorf("fund %s: %w", w, err)
		}
	}

	if len(opts.wallets) > 0 && opts.mint > 0 {
		uris := make([]string, opts.mint)
		for i := range uris {
			uris[i] = fmt.Sprintf("ipfs://%s/%d", festival.Symbol, i+1)
		}
		if _, err := registry.BatchMint(ctx, festival.ID, opts.wallets[0], uris, faceValue, opts.organiser); err != nil {
			return fmt.Errorf("mint demo tickets: %w", err)
		}
	}

	fmt.Printf("festival: %s (%s)\n", festival.ID, festival.Name)
	if cfg.Auth.JWTSecret == "" {
		log.Warn("SEED", "JWT_SECRET not set, skipping bearer tokens")
		return nil
	}
	principals := append([]string{opts.organiser, opts.verifier, cfg.Marketplace.Operator}, opts.wallets...)
	for _, p := range principals {
		token, err := auth.IssueToken(cfg.Auth.JWTSecret, p, opts.ttl)
		if err != nil {
			return err
		}
		fmt.Printf("%s  Bearer %s\n", models.NormalizeAddress(p), token)
	}
	return nil
}
