package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/birads-report-server/internal/database"
	"github.com/birads-report-server/internal/domain"
)

func TestPostgresArchive(t *testing.T) {
	if os.Getenv("DOCKER_HOST") == "" {
		if _, err := os.Stat("/var/run/docker.sock"); err != nil {
			t.Skip("Docker not available, skipping container test")
		}
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	databaseURL := fmt.Sprintf("postgres://testuser:testpass@%s:%d/testdb?sslmode=disable", host, port.Int())
	runner, err := database.NewMigrationRunner(databaseURL, "../../migrations", logger)
	require.NoError(t, err)
	require.NoError(t, runner.Up())
	require.NoError(t, runner.Close())

	db, err := database.NewConnection(ctx, domain.ArchiveConfig{
		Host:     host,
		Port:     port.Int(),
		Database: "testdb",
		Username: "testuser",
		Password: "testpass",
		SSLMode:  "disable",
		MaxConns: 5,
		MinConns: 1,
	}, logger)
	require.NoError(t, err)
	defer db.Close()

	archive := NewPostgresArchive(db.Pool, logger)

	entities, _ := json.Marshal(map[string]any{"findings": []any{}})
	recommendations, _ := json.Marshal(map[string]any{"follow_up": []any{}})

	record := &domain.AnalysisRecord{
		ReportHash:           "abc123",
		BiradsClassification: domain.BIRADS4A,
		FindingsCount:        1,
		Entities:             entities,
		Recommendations:      recommendations,
		Source:               domain.SourceAPI,
	}

	require.NoError(t, archive.Create(ctx, record))
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.CreatedAt.IsZero())

	got, err := archive.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ReportHash, got.ReportHash)
	assert.Equal(t, domain.BIRADS4A, got.BiradsClassification)
	assert.Equal(t, domain.SourceAPI, got.Source)

	_, err = archive.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	second := &domain.AnalysisRecord{
		ReportHash:      "def456",
		FindingsCount:   0,
		Entities:        entities,
		Recommendations: recommendations,
		Source:          domain.SourceMCP,
	}
	require.NoError(t, archive.Create(ctx, second))

	records, err := archive.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	counts, err := archive.CountByClassification(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["4A"])
	assert.Equal(t, 1, counts[""])
}
