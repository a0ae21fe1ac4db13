package sessions

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS upload_sessions (
    id TEXT PRIMARY KEY,
    file_id TEXT,
    uploader_id TEXT,
    file_name TEXT,
    storage_key TEXT NOT NULL,
    page_count INTEGER NOT NULL DEFAULT 0,
    parse_status TEXT NOT NULL DEFAULT 'pending',
    second_pass_status TEXT NOT NULL DEFAULT 'none',
    routing_decision TEXT,
    requires_human_review INTEGER NOT NULL DEFAULT 1,
    extraction_confidence INTEGER,
    segmentation_confidence INTEGER,
    final_confidence INTEGER,
    metadata_json TEXT,
    parts_json TEXT,
    error_message TEXT,
    committed_at TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_upload_sessions_parse_status
    ON upload_sessions(parse_status);
CREATE INDEX IF NOT EXISTS idx_upload_sessions_review
    ON upload_sessions(requires_human_review);
`

func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply sessions schema: %w", err)
	}
	return nil
}
