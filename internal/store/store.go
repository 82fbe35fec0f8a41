package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/pipeline"
)

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("capture not found")

// Options configures a Store.
type Options struct {
	// Dir receives the image files.
	Dir string
	// DBPath is the SQLite database file.
	DBPath string
	// Format is "jpeg" or "png".
	Format string
	// Quality is the JPEG quality.
	Quality int
}

// Record is one row of the capture log.
type Record struct {
	ID             string                   `json:"id"`
	CapturedAt     time.Time                `json:"captured_at"`
	FilePath       string                   `json:"filepath"`
	Width          int                      `json:"width"`
	Height         int                      `json:"height"`
	FileSize       int64                    `json:"filesize"`
	Rectified      bool                     `json:"rectified"`
	Warning        string                   `json:"warning,omitempty"`
	Quad           geometry.Quad            `json:"quad"`
	Classification detection.Classification `json:"classification"`
	Quality        float64                  `json:"quality"`
	Source         string                   `json:"source"`
	Auto           bool                     `json:"auto"`
}

// Store is a SQLite-backed capture log.
type Store struct {
	db   *db
	opts Options
	log  zerolog.Logger
}

var _ pipeline.CaptureConsumer = (*Store)(nil)

// Open creates the image directory and opens (or creates) the database.
func Open(opts Options, log zerolog.Logger) (*Store, error) {
	if opts.Format == "" {
		opts.Format = "jpeg"
	}
	if opts.Quality <= 0 {
		opts.Quality = 90
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}
	if dir := filepath.Dir(opts.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	d, err := openDB(opts.DBPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: d, opts: opts, log: log.With().Str("component", "store").Logger()}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.close()
}

// Deliver saves the capture image and inserts its row.
func (s *Store) Deliver(ctx context.Context, c pipeline.Capture) error {
	if c.Image == nil {
		return errors.New("capture has no image")
	}

	id := uuid.NewString()
	ext := ".jpg"
	if strings.EqualFold(s.opts.Format, "png") {
		ext = ".png"
	}
	path := filepath.Join(s.opts.Dir, c.At.UTC().Format("20060102-150405")+"-"+id[:8]+ext)

	if err := imaging.Save(c.Image, path, imaging.JPEGQuality(s.opts.Quality)); err != nil {
		return fmt.Errorf("save capture image: %w", err)
	}
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	quad, err := json.Marshal(c.Quad)
	if err != nil {
		return fmt.Errorf("encode quad: %w", err)
	}

	b := c.Image.Bounds()
	s.db.mu.Lock()
	_, err = s.db.conn.ExecContext(ctx, `
		INSERT INTO captures (id, captured_at, filepath, width, height, filesize,
			rectified, warning, quad, classification, quality, source, auto)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, c.At.UTC(), path, b.Dx(), b.Dy(), size,
		c.Rectified, c.Warning, string(quad), string(c.Classification), c.Quality, c.Source.String(), c.Auto)
	s.db.mu.Unlock()
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to insert capture: %w", err)
	}

	s.log.Info().
		Str("id", id).
		Str("path", path).
		Bool("rectified", c.Rectified).
		Str("class", string(c.Classification)).
		Msg("capture stored")
	return nil
}

const selectColumns = `SELECT id, captured_at, filepath, width, height, filesize,
	rectified, warning, quad, classification, quality, source, auto FROM captures`

// Get returns the record with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rec, err := scanRecord(s.db.conn.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return rec, nil
}

// List returns the most recent records first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	query := selectColumns + ` ORDER BY captured_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list captures: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored captures.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var n int
	if err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM captures`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count captures: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec   Record
		quad  string
		class string
	)
	err := row.Scan(&rec.ID, &rec.CapturedAt, &rec.FilePath, &rec.Width, &rec.Height, &rec.FileSize,
		&rec.Rectified, &rec.Warning, &quad, &class, &rec.Quality, &rec.Source, &rec.Auto)
	if err != nil {
		return nil, err
	}
	rec.Classification = detection.Classification(class)
	if quad != "" {
		if err := json.Unmarshal([]byte(quad), &rec.Quad); err != nil {
			return nil, fmt.Errorf("decode quad: %w", err)
		}
	}
	return &rec, nil
}
