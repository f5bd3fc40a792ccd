package lineage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"castpress/internal/artifact"
)

// Record is one derivation entry: an artifact produced by a step during a
// run, optionally from a parent artifact.
type Record struct {
	ID        int64
	RunID     string
	Episode   string
	Step      string
	Kind      artifact.Kind
	Model     string
	Track     string
	Parent    string
	Operation string
	Path      string
	CreatedAt time.Time
}

// Append inserts a record and returns its id. CreatedAt is stamped here;
// callers never supply it.
func (s *Store) Append(ctx context.Context, record Record) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO lineage_records (
            run_id, episode, step, kind, model, track, parent, operation, path, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.Episode,
		record.Step,
		string(record.Kind),
		nullableString(record.Model),
		nullableString(record.Track),
		nullableString(record.Parent),
		record.Operation,
		record.Path,
		timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("insert lineage record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// ByEpisode returns every record for the episode key, oldest first.
func (s *Store) ByEpisode(ctx context.Context, episodeKey string) ([]Record, error) {
	return s.query(ctx,
		`SELECT id, run_id, episode, step, kind, model, track, parent, operation, path, created_at
           FROM lineage_records WHERE episode = ? ORDER BY created_at, id`,
		episodeKey,
	)
}

// ByRun returns every record for one pipeline run, oldest first.
func (s *Store) ByRun(ctx context.Context, runID string) ([]Record, error) {
	return s.query(ctx,
		`SELECT id, run_id, episode, step, kind, model, track, parent, operation, path, created_at
           FROM lineage_records WHERE run_id = ? ORDER BY created_at, id`,
		runID,
	)
}

func (s *Store) query(ctx context.Context, querySQL string, args ...any) ([]Record, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query lineage: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			record               Record
			kind                 string
			model, track, parent sql.NullString
			createdAt            string
		)
		if err := rows.Scan(
			&record.ID, &record.RunID, &record.Episode, &record.Step, &kind,
			&model, &track, &parent, &record.Operation, &record.Path, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan lineage record: %w", err)
		}
		record.Kind = artifact.Kind(kind)
		record.Model = model.String
		record.Track = track.String
		record.Parent = parent.String
		if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			record.CreatedAt = parsed
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lineage records: %w", err)
	}
	return records, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
