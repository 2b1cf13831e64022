package index

import (
	"context"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite is the default backend: a single on-disk collection, loaded or
// created at startup. Inserts are transactional, so a concurrent search
// never sees part of a document, and the documents primary key makes the
// same-fingerprint insert race lose cleanly on one side.
type SQLite struct {
	db *sqlx.DB
}

var _ Index = (*SQLite)(nil)

func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating index schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *SQLite) InsertDocument(ctx context.Context, doc Document) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (fingerprint, source, chunk_count) VALUES (?, ?, ?)`,
		doc.Fingerprint, doc.Source, len(doc.Chunks))
	if err != nil {
		if isConstraintErr(err) {
			return 0, ErrDuplicateDocument
		}
		return 0, fmt.Errorf("insert document: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO chunks (id, fingerprint, source, position, content, embedding) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range doc.Chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, doc.Fingerprint, doc.Source, c.Position, c.Content, encodeVector(c.Embedding)); err != nil {
			if isConstraintErr(err) {
				return 0, ErrDuplicateChunk
			}
			return 0, fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return len(doc.Chunks), nil
}

func (s *SQLite) Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	// Brute-force scan; rowid order makes equal-score ties resolve by
	// insertion order after the stable sort.
	rows, err := s.db.QueryxContext(ctx,
		`SELECT id, fingerprint, source, position, content, embedding FROM chunks ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			c    Chunk
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.Fingerprint, &c.Source, &c.Position, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Embedding = decodeVector(blob)
		results = append(results, SearchResult{Chunk: c, Score: Cosine(vector, c.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit >= 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (s *SQLite) HasDocument(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM documents WHERE fingerprint = ?)`, fingerprint)
	if err != nil {
		return false, fmt.Errorf("check document: %w", err)
	}
	return exists, nil
}

func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.GetContext(ctx, &st.Documents, `SELECT COUNT(*) FROM documents`); err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	if err := s.db.GetContext(ctx, &st.Chunks, `SELECT COUNT(*) FROM chunks`); err != nil {
		return Stats{}, fmt.Errorf("count chunks: %w", err)
	}
	return st, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func isConstraintErr(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}

// Embeddings are stored as little-endian float32 blobs, 4 bytes per
// dimension.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
