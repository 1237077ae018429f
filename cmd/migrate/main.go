package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/retail-etl/internal/logger"
	"google.golang.org/api/iterator"
)

// migration is a single versioned DDL file from the migrations directory.
type migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// appliedMigration is a row from the schema_migrations bookkeeping table.
type appliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

var migrationFilePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

func main() {
	log := logger.New()

	projectID := flag.String("project", "", "GCP project ID (required)")
	datasetID := flag.String("dataset", "retail", "BigQuery dataset ID")
	appliedBy := flag.String("applied-by", "migrate-cli", "Name recorded against applied migrations")
	migrationsDir := flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
	flag.Parse()

	if *projectID == "" {
		log.Fatal().Msg("-project flag is required")
	}

	ctx := logger.WithContext(context.Background(), log)

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating BigQuery client failed")
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	if err := ensureMigrationsTable(ctx, client, *projectID, *datasetID); err != nil {
		log.Fatal().Err(err).Msg("Ensuring schema_migrations table failed")
	}

	migrations, err := readMigrations(*migrationsDir, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Reading migration files failed")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	applied, err := appliedMigrations(ctx, client, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Reading applied migrations failed")
	}

	appliedByVersion := make(map[int]appliedMigration, len(applied))
	for _, am := range applied {
		appliedByVersion[am.Version] = am
	}

	ranCount := 0
	for _, m := range migrations {
		if am, ok := appliedByVersion[m.Version]; ok {
			if am.Checksum != "" && am.Checksum != m.Checksum {
				log.Fatal().
					Str("migration", m.Filename).
					Msg("Applied migration no longer matches its file; refusing to continue")
			}
			log.Info().Str("migration", m.Filename).Msg("Already applied, skipping")
			continue
		}

		log.Info().Str("migration", m.Filename).Msg("Applying")
		if err := runStatement(ctx, client, m.SQL, nil); err != nil {
			log.Fatal().Err(err).Str("migration", m.Filename).Msg("Migration failed")
		}
		if err := recordMigration(ctx, client, *projectID, *datasetID, *appliedBy, m); err != nil {
			log.Fatal().Err(err).Str("migration", m.Filename).Msg("Recording migration failed")
		}
		ranCount++
	}

	if ranCount == 0 {
		log.Info().Msg("No new migrations to apply")
	} else {
		log.Info().Int("applied", ranCount).Msg("Migrations applied")
	}
}

func ensureMigrationsTable(ctx context.Context, client *bigquery.Client, projectID, datasetID string) error {
	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s.%s.schema_migrations` ("+`
		version    INT64 NOT NULL,
		name       STRING NOT NULL,
		applied_at TIMESTAMP NOT NULL,
		checksum   STRING,
		applied_by STRING
	)`, projectID, datasetID)
	return runStatement(ctx, client, sql, nil)
}

// readMigrations loads every NNNN_name.sql file from dir, substitutes the
// project and dataset placeholders, and returns the result sorted by
// version. Checksums are taken over the raw file so they stay stable across
// environments.
func readMigrations(dir, projectID, datasetID string) ([]migration, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("readMigrations: directory not found: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("readMigrations: %w", err)
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("readMigrations: reading %s: %w", entry.Name(), err)
		}

		sql := string(content)
		sql = strings.ReplaceAll(sql, "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		migrations = append(migrations, migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func appliedMigrations(ctx context.Context, client *bigquery.Client, projectID, datasetID string) ([]appliedMigration, error) {
	sql := fmt.Sprintf("SELECT version, name, applied_at, checksum, applied_by FROM `%s.%s.schema_migrations` ORDER BY version ASC",
		projectID, datasetID)

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		// First run against a fresh dataset: the table was just created but
		// may not be visible to queries yet.
		if strings.Contains(err.Error(), "Not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("appliedMigrations: %w", err)
	}

	var applied []appliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("appliedMigrations: iterating: %w", err)
		}

		am := appliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
		}
		if row.Checksum.Valid {
			am.Checksum = row.Checksum.StringVal
		}
		if row.AppliedBy.Valid {
			am.AppliedBy = row.AppliedBy.StringVal
		}
		applied = append(applied, am)
	}
	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, projectID, datasetID, appliedBy string, m migration) error {
	sql := fmt.Sprintf("INSERT INTO `%s.%s.schema_migrations` (version, name, applied_at, checksum, applied_by) VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)",
		projectID, datasetID)
	params := []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	return runStatement(ctx, client, sql, params)
}

func runStatement(ctx context.Context, client *bigquery.Client, sql string, params []bigquery.QueryParameter) error {
	query := client.Query(sql)
	query.Parameters = params

	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
