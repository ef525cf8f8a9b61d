package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"truthx/internal/config"
	"truthx/internal/services"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// DefaultListLimit caps List when no limit is given.
	DefaultListLimit = 50
	maxListLimit     = 1000
)

const entryColumns = "id, request_id, file_name, file_type, mime_type, score, risk_level, summary, metadata_json, digest, created_at"

// Store is the local SQLite analysis history. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the history database in the configured state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.AuditDBPath())
}

// OpenPath opens or creates the history database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry. Missing IDs and timestamps are filled in.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	_, err := s.Insert(ctx, entry)
	return err
}

// Insert stores entry and returns it with its assigned ID and timestamp.
func (s *Store) Insert(ctx context.Context, entry Entry) (Entry, error) {
	if strings.TrimSpace(entry.FileName) == "" || strings.TrimSpace(entry.FileType) == "" {
		return Entry{}, services.Wrap(services.ErrValidation, "audit", "insert", "file name and type are required", nil)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO analyses (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			nullableString(entry.RequestID),
			entry.FileName,
			entry.FileType,
			nullableString(entry.MIMEType),
			entry.Score,
			entry.RiskLevel,
			entry.Summary,
			nullableString(entry.MetadataJSON),
			nullableString(entry.Digest),
			entry.CreatedAt.Format(time.RFC3339Nano),
		)
		return err
	})
	if err != nil {
		return Entry{}, fmt.Errorf("insert analysis: %w", err)
	}
	return entry, nil
}

// Get returns the entry with id, or services.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM analyses WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, services.Wrap(services.ErrNotFound, "audit", "get", fmt.Sprintf("analysis %q not found", id), nil)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get analysis: %w", err)
	}
	return entry, nil
}

// List returns the newest entries first. limit <= 0 selects DefaultListLimit.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, maxListLimit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM analyses ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FindByDigest returns earlier analyses of the same file content, newest first.
func (s *Store) FindByDigest(ctx context.Context, digest string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM analyses WHERE digest = ? ORDER BY created_at DESC, rowid DESC`, digest)
	if err != nil {
		return nil, fmt.Errorf("find by digest: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Stats summarizes the history for status output.
type Stats struct {
	Total   int
	ByLevel map[string]int
}

// Stats counts entries per risk level.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT risk_level, COUNT(1) FROM analyses GROUP BY risk_level`)
	if err != nil {
		return Stats{}, fmt.Errorf("analysis stats: %w", err)
	}
	defer rows.Close()
	stats := Stats{ByLevel: map[string]int{}}
	for rows.Next() {
		var (
			level string
			count int
		)
		if err := rows.Scan(&level, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByLevel[level] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry      Entry
		requestID  sql.NullString
		mimeType   sql.NullString
		metadata   sql.NullString
		digest     sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(
		&entry.ID,
		&requestID,
		&entry.FileName,
		&entry.FileType,
		&mimeType,
		&entry.Score,
		&entry.RiskLevel,
		&entry.Summary,
		&metadata,
		&digest,
		&createdRaw,
	); err != nil {
		return Entry{}, err
	}
	entry.RequestID = requestID.String
	entry.MIMEType = mimeType.String
	entry.MetadataJSON = metadata.String
	entry.Digest = digest.String
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			return lastErr
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
