package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"segno/internal/config"
)

// Store manages upload session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the session database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := applySchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewUpload inserts a pending session for a freshly uploaded PDF and returns it.
func (s *Store) NewUpload(ctx context.Context, fileID, uploaderID, fileName, storageKey string) (*Session, error) {
	if strings.TrimSpace(storageKey) == "" {
		return nil, errors.New("storage key is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO upload_sessions (
            id, file_id, uploader_id, file_name, storage_key,
            parse_status, second_pass_status, requires_human_review,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		nullableString(fileID),
		nullableString(uploaderID),
		nullableString(fileName),
		storageKey,
		ParsePending,
		SecondPassNone,
		1,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a session by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM upload_sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// Update persists the full mutable state of a session in one atomic write.
func (s *Store) Update(ctx context.Context, session *Session) error {
	if session == nil {
		return errors.New("session is nil")
	}
	metadataJSON, err := marshalJSON(session.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	partsJSON, err := marshalJSON(session.Parts)
	if err != nil {
		return fmt.Errorf("marshal parts: %w", err)
	}

	session.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE upload_sessions
         SET file_id = ?, uploader_id = ?, file_name = ?, storage_key = ?,
             page_count = ?, parse_status = ?, second_pass_status = ?,
             routing_decision = ?, requires_human_review = ?,
             extraction_confidence = ?, segmentation_confidence = ?, final_confidence = ?,
             metadata_json = ?, parts_json = ?, error_message = ?,
             committed_at = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(session.FileID),
		nullableString(session.UploaderID),
		nullableString(session.FileName),
		session.StorageKey,
		session.PageCount,
		session.ParseStatus,
		session.SecondPassStatus,
		nullableString(string(session.RoutingDecision)),
		boolToInt(session.RequiresHumanReview),
		nullableInt(session.ExtractionConfidence),
		nullableInt(session.SegmentationConfidence),
		nullableInt(session.FinalConfidence),
		nullableString(metadataJSON),
		nullableString(partsJSON),
		nullableString(session.ErrorMessage),
		nullableTime(session.CommittedAt),
		session.UpdatedAt.Format(time.RFC3339Nano),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// List returns sessions filtered by parse status (or all when none given),
// newest first.
func (s *Store) List(ctx context.Context, statuses ...ParseStatus) ([]*Session, error) {
	var (
		rows *sql.Rows
		err  error
	)
	baseQuery := `SELECT ` + sessionColumns + ` FROM upload_sessions`
	orderClause := ` ORDER BY created_at DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE parse_status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var result []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	return result, rows.Err()
}

// Stats returns aggregated session counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT parse_status, requires_human_review, committed_at IS NOT NULL, COUNT(1)
         FROM upload_sessions
         GROUP BY parse_status, requires_human_review, committed_at IS NOT NULL`,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("session stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{}
	for rows.Next() {
		var (
			status    string
			review    int
			committed int
			count     int
		)
		if err := rows.Scan(&status, &review, &committed, &count); err != nil {
			return Stats{}, err
		}
		stats.Total += count
		switch ParseStatus(status) {
		case ParsePending:
			stats.Pending += count
		case Parsed:
			stats.Parsed += count
		case NotParsed:
			stats.NotParsed += count
		}
		if review != 0 {
			stats.NeedReview += count
		}
		if committed != 0 {
			stats.Committed += count
		}
	}
	return stats, rows.Err()
}

const sessionColumns = "id, file_id, uploader_id, file_name, storage_key, page_count, parse_status, second_pass_status, routing_decision, requires_human_review, extraction_confidence, segmentation_confidence, final_confidence, metadata_json, parts_json, error_message, committed_at, created_at, updated_at"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		id             string
		fileID         sql.NullString
		uploaderID     sql.NullString
		fileName       sql.NullString
		storageKey     string
		pageCount      int
		parseStatus    string
		secondPass     string
		routing        sql.NullString
		requiresReview sql.NullInt64
		extractionConf sql.NullInt64
		segmentConf    sql.NullInt64
		finalConf      sql.NullInt64
		metadataJSON   sql.NullString
		partsJSON      sql.NullString
		errorMessage   sql.NullString
		committedRaw   sql.NullString
		createdRaw     string
		updatedRaw     string
	)

	if err := scanner.Scan(
		&id,
		&fileID,
		&uploaderID,
		&fileName,
		&storageKey,
		&pageCount,
		&parseStatus,
		&secondPass,
		&routing,
		&requiresReview,
		&extractionConf,
		&segmentConf,
		&finalConf,
		&metadataJSON,
		&partsJSON,
		&errorMessage,
		&committedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	session := &Session{
		ID:               id,
		FileID:           fileID.String,
		UploaderID:       uploaderID.String,
		FileName:         fileName.String,
		StorageKey:       storageKey,
		PageCount:        pageCount,
		ParseStatus:      ParseStatus(parseStatus),
		SecondPassStatus: SecondPassStatus(secondPass),
		RoutingDecision:  RoutingDecision(routing.String),
		ErrorMessage:     errorMessage.String,
	}
	if requiresReview.Valid {
		session.RequiresHumanReview = requiresReview.Int64 != 0
	}
	session.ExtractionConfidence = intPointer(extractionConf)
	session.SegmentationConfidence = intPointer(segmentConf)
	session.FinalConfidence = intPointer(finalConf)

	if metadataJSON.Valid && metadataJSON.String != "" {
		meta := &Metadata{}
		if err := json.Unmarshal([]byte(metadataJSON.String), meta); err != nil {
			return nil, fmt.Errorf("decode session metadata: %w", err)
		}
		session.Metadata = meta
	}
	if partsJSON.Valid && partsJSON.String != "" {
		if err := json.Unmarshal([]byte(partsJSON.String), &session.Parts); err != nil {
			return nil, fmt.Errorf("decode session parts: %w", err)
		}
	}
	if committedRaw.Valid {
		if committed, err := parseTimeString(committedRaw.String); err == nil {
			session.CommittedAt = &committed
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		session.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		session.UpdatedAt = updated
	}
	return session, nil
}

func marshalJSON(value any) (string, error) {
	switch v := value.(type) {
	case *Metadata:
		if v == nil {
			return "", nil
		}
	case []Part:
		if len(v) == 0 {
			return "", nil
		}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func intPointer(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
