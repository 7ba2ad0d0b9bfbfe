package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

const selectColumns = `
	SELECT id, cluster_id, namespace, application, environment, application_type,
		data_availability, source, suggestion, created_at
	FROM suggestions`

// PostgresStore implements Store interface using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database, tunes the pool and applies the schema
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// WithPassword injects a password into a DSN that does not carry one.
// Both URL and key=value forms are accepted.
func WithPassword(dsn, password string) (string, error) {
	if password == "" {
		return dsn, nil
	}
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid database url: %w", err)
		}
		if u.User == nil {
			return "", errors.New("database url has no user")
		}
		if _, set := u.User.Password(); set {
			return dsn, nil
		}
		u.User = url.UserPassword(u.User.Username(), password)
		return u.String(), nil
	}
	for _, field := range strings.Fields(dsn) {
		if strings.HasPrefix(field, "password=") {
			return dsn, nil
		}
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(password)
	return strings.TrimSpace(dsn) + " password='" + escaped + "'", nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema, err := postgresFS.ReadFile("migrations/001_postgres_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// SaveSuggestion stores a suggestion record, assigning an ID if needed
func (s *PostgresStore) SaveSuggestion(ctx context.Context, rec *models.SuggestionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	body, err := json.Marshal(rec.Suggestion)
	if err != nil {
		return fmt.Errorf("failed to encode suggestion: %w", err)
	}

	query := `
		INSERT INTO suggestions (
			id, cluster_id, namespace, application, environment, application_type,
			data_availability, source, min_replicas, max_replicas, suggestion, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.ClusterID, rec.Namespace, rec.Application, rec.Environment, rec.ApplicationType,
		string(rec.DataAvailability), string(rec.Source),
		rec.Suggestion.HPA.MinReplicas, rec.Suggestion.HPA.MaxReplicas,
		body, rec.CreatedAt,
	)
	return err
}

// GetSuggestion retrieves a suggestion record by ID
func (s *PostgresStore) GetSuggestion(ctx context.Context, id string) (*models.SuggestionRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// ListSuggestions returns the newest suggestions for a namespace
func (s *PostgresStore) ListSuggestions(ctx context.Context, namespace string, limit int) ([]*models.SuggestionRecord, error) {
	return s.query(ctx, selectColumns+`
		WHERE namespace = $1
		ORDER BY created_at DESC
		LIMIT $2`, namespace, limit)
}

// GetApplicationHistory returns up to limit suggestions for one application, oldest first
func (s *PostgresStore) GetApplicationHistory(ctx context.Context, namespace, application string, limit int) (*models.ApplicationTrend, error) {
	records, err := s.query(ctx, selectColumns+`
		WHERE namespace = $1 AND application = $2
		ORDER BY created_at DESC
		LIMIT $3`, namespace, application, limit)
	if err != nil {
		return nil, err
	}
	return BuildTrend(namespace, application, records), nil
}

// GetHistoryStats summarizes suggestions made for a namespace in the last days
func (s *PostgresStore) GetHistoryStats(ctx context.Context, namespace string, days int) (*models.HistoryStats, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	records, err := s.query(ctx, selectColumns+`
		WHERE namespace = $1 AND created_at >= $2
		ORDER BY created_at DESC`, namespace, since)
	if err != nil {
		return nil, err
	}
	return Summarize(namespace, days, records), nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...interface{}) ([]*models.SuggestionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.SuggestionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*models.SuggestionRecord, error) {
	var rec models.SuggestionRecord
	var availability, source string
	var environment, appType sql.NullString
	var body []byte

	err := row.Scan(
		&rec.ID, &rec.ClusterID, &rec.Namespace, &rec.Application, &environment, &appType,
		&availability, &source, &body, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Environment = environment.String
	rec.ApplicationType = appType.String
	rec.DataAvailability = models.DataAvailability(availability)
	rec.Source = models.SuggestionSource(source)
	if err := json.Unmarshal(body, &rec.Suggestion); err != nil {
		return nil, fmt.Errorf("corrupt suggestion %s: %w", rec.ID, err)
	}
	return &rec, nil
}
