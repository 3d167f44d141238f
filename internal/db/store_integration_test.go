//go:build integration

package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/zapfragrance/sitecontrol/internal/auth"
	"github.com/zapfragrance/sitecontrol/internal/models"
)

var testDB *DB

func TestMain(m *testing.M) {
	if !dockerAvailable() {
		fmt.Println("Docker is not available, skipping integration tests")
		os.Exit(0)
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("sitecontrol_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to get connection string: %v", err)
	}

	testDB, err = New(ctx, DefaultConfig(connStr), zerolog.New(zerolog.NewConsoleWriter()))
	if err != nil {
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := testDB.Migrate(ctx); err != nil {
		testDB.Close()
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to run migrations: %v", err)
	}

	code := m.Run()

	testDB.Close()
	pgContainer.Terminate(ctx)
	os.Exit(code)
}

func dockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

func TestSiteSettingsStore(t *testing.T) {
	ctx := context.Background()

	_, err := testDB.Pool.Exec(ctx, "DELETE FROM site_settings")
	require.NoError(t, err)

	t.Run("absent record", func(t *testing.T) {
		rec, err := testDB.FetchSiteSettings(ctx)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("null columns read back empty", func(t *testing.T) {
		_, err := testDB.Pool.Exec(ctx,
			"INSERT INTO site_settings (id, accent_color, theme_mode) VALUES (1, '#FF0000', 'night')")
		require.NoError(t, err)

		rec, err := testDB.FetchSiteSettings(ctx)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "#FF0000", rec.AccentColor)
		assert.Equal(t, "night", rec.ThemeMode)
		assert.Empty(t, rec.DayImageURL)
		assert.Empty(t, rec.NightImageURL)
	})

	t.Run("upsert replaces the singleton", func(t *testing.T) {
		rec := models.DefaultSiteSettings().Record()
		require.NoError(t, testDB.UpsertSiteSettings(ctx, &rec))
		require.NoError(t, testDB.UpsertSiteSettings(ctx, &rec))

		var count int
		require.NoError(t, testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM site_settings").Scan(&count))
		assert.Equal(t, 1, count)

		got, err := testDB.FetchSiteSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultAccentColor, got.AccentColor)
		assert.Equal(t, models.DefaultDayImageURL, got.DayImageURL)
		assert.Equal(t, "unset", got.ThemeMode)
	})
}

func TestAdminStore(t *testing.T) {
	ctx := context.Background()

	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)

	admin := models.NewAdmin("Owner@ZapFragrance.com", hash)
	require.NoError(t, testDB.UpsertAdmin(ctx, admin))

	got, err := testDB.GetAdminByEmail(ctx, "owner@zapfragrance.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)
	assert.NoError(t, auth.VerifyPassword("s3cret-pass", got.PasswordHash))

	_, err = testDB.GetAdminByEmail(ctx, "nobody@zapfragrance.com")
	assert.ErrorIs(t, err, auth.ErrAdminNotFound)

	admins, err := testDB.ListAdmins(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, admins)
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()

	migrations, err := GetMigrations()
	require.NoError(t, err)

	t.Run("nothing pending after migrate", func(t *testing.T) {
		pending, err := testDB.PendingMigrations(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)

		version, err := testDB.CurrentVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, migrations[len(migrations)-1].Version, version)
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		require.NoError(t, testDB.Migrate(ctx))
	})
}
