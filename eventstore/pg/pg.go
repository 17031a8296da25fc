// Package pg implements eventstore.Store on PostgreSQL with the pgvector
// extension.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/mkarasev/daytrip/event"
	"github.com/mkarasev/daytrip/eventstore"
	"github.com/mkarasev/daytrip/vector"
)

// Config holds pgvector connection configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	Dimension int    // embedding dimension (default 1536)
	TableName string // default "events"
}

// DefaultConfig returns default pgvector configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:      "127.0.0.1",
		Port:      5432,
		User:      "postgres",
		DBName:    "daytrip",
		SSLMode:   "disable",
		Dimension: 1536,
		TableName: "events",
	}
}

// Store is the pgvector-backed event store.
type Store struct {
	db        *sql.DB
	embedder  vector.Embedder
	dimension int
	tableName string
}

// New connects to PostgreSQL, ensures the schema exists, and returns a Store.
func New(cfg *Config, embedder vector.Embedder) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}
	if cfg.TableName == "" {
		cfg.TableName = "events"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := &Store{
		db:        db,
		embedder:  embedder,
		dimension: cfg.Dimension,
		tableName: cfg.TableName,
	}
	if err := store.setup(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to setup pgvector: %w", err)
	}
	return store, nil
}

func (s *Store) setup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(512) PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		source TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		event_date TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL DEFAULT 'all',
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.tableName, s.dimension)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Upsert embeds and writes events, replacing rows with the same id.
func (s *Store) Upsert(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	texts := make([]string, len(events))
	for i := range events {
		texts[i] = events[i].Text()
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed events: %w", err)
	}
	if len(vectors) != len(events) {
		return fmt.Errorf("expected %d embeddings, got %d", len(events), len(vectors))
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, title, description, tags, source, country, location,
		latitude, longitude, event_date, url, owner, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::vector)
	ON CONFLICT (id) DO UPDATE SET
		description = EXCLUDED.description,
		tags = EXCLUDED.tags,
		source = EXCLUDED.source,
		country = EXCLUDED.country,
		location = EXCLUDED.location,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		url = EXCLUDED.url,
		embedding = EXCLUDED.embedding,
		created_at = CURRENT_TIMESTAMP
	`, s.tableName)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	for i, e := range events {
		id := dedupKey(e)
		vec := vector.Normalize(vectors[i])
		if _, err := tx.ExecContext(ctx, query,
			id, e.Title, e.Description, pq.Array(e.Tags), e.Source, e.Country,
			e.Location, e.Latitude, e.Longitude, e.Date, e.URL, ownerOrShared(e.Owner),
			vectorToString(vec),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert event %q: %w", e.Title, err)
		}
	}
	return tx.Commit()
}

// Search embeds the query and runs nearest-neighbor search with the pgvector
// cosine distance operator.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]eventstore.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec = vector.Normalize(queryVec)

	searchSQL := fmt.Sprintf(`
	SELECT title, description, tags, source, country, location,
		latitude, longitude, event_date, url, owner,
		embedding <=> $1::vector AS distance
	FROM %s
	ORDER BY distance
	LIMIT $2
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, searchSQL, vectorToString(queryVec), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}
	defer rows.Close()

	candidates := make([]eventstore.Candidate, 0, limit)
	for rows.Next() {
		var (
			e    event.Event
			tags pq.StringArray
			dist float64
		)
		if err := rows.Scan(&e.Title, &e.Description, &tags, &e.Source, &e.Country,
			&e.Location, &e.Latitude, &e.Longitude, &e.Date, &e.URL, &e.Owner, &dist); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Tags = tags
		candidates = append(candidates, eventstore.Candidate{Event: e, Distance: float32(dist)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return candidates, nil
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func dedupKey(e event.Event) string {
	return strings.ToLower(strings.Join([]string{e.Title, e.Date, ownerOrShared(e.Owner)}, "|"))
}

func ownerOrShared(owner string) string {
	if owner == "" {
		return event.OwnerShared
	}
	return owner
}

func vectorToString(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = fmt.Sprintf("%f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

var _ eventstore.Store = (*Store)(nil)
