package migrations_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"ms-marketplace/internal/database/migrations"
	"ms-marketplace/internal/models"
	ticket_db "ms-marketplace/internal/tickets/db"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func TestInitialize_MissingDirectory(t *testing.T) {
	runner := migrations.NewRunner(nil, migrations.MigrateOptions{MigrationsDir: filepath.Join(t.TempDir(), "absent")}, nil)
	err := runner.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestRunMigrations_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}

	ctx := context.Background()
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "marketplace",
				"POSTGRES_PASSWORD": "marketplace",
				"POSTGRES_DB":       "marketplace",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Postgres container: %v", err)
	}
	defer pg.Terminate(ctx)

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://marketplace:marketplace@%s:%s/marketplace?sslmode=disable", host, port.Port())
	sqldb, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{MigrationsDir: "../../../migrations"}, nil)
	require.NoError(t, runner.RunMigrations())
	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)

	// a second run is a no-op
	require.NoError(t, runner.RunMigrations())

	store := &ticket_db.DB{Bun: bunDB}
	now := time.Now().UTC()
	festival := &models.Festival{
		ID: "pg-fest", Name: "PG", Symbol: "PG",
		Organiser: "0xa1", Marketplace: "0xb2",
		MaxTicketsPerWallet: 2, MaxResalePercentage: 110, RoyaltyPercentage: 5,
		CommissionPercentage: models.CommissionPercentage,
		Status:               models.StatusActive, NextTokenID: 1, ConfigVersion: 1,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.CreateFestival(ctx, festival))

	err = store.WithTx(ctx, festival.ID, func(ctx context.Context) error {
		f, err := store.GetFestival(ctx, festival.ID)
		if err != nil {
			return err
		}
		f.NextTokenID++
		return store.UpdateFestival(ctx, f)
	})
	require.NoError(t, err)

	got, err := store.GetFestival(ctx, festival.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.NextTokenID)

	require.NoError(t, runner.MigrateDown())
	require.NoError(t, runner.Close())
}
