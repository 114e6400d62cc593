package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"intake-platform/internal/intake"
)

const selectCallColumns = `
	call_id, assistant_id, call_duration, call_status,
	recording_url, summary, success_evaluation,
	phone_number, started_at, ended_at, end_reason, cost,
	transcript, metadata, created_at`

// Stats is the aggregate view served by the dashboard.
type Stats struct {
	TotalCalls       int            `json:"total_calls"`
	TotalSubmissions int            `json:"total_submissions"`
	AverageDuration  float64        `json:"average_duration"`
	CallerRoles      map[string]int `json:"caller_roles"`
	AssetTypes       map[string]int `json:"asset_types"`
}

// RecentCalls returns up to limit call records, newest first.
func (s *Store) RecentCalls(ctx context.Context, limit int) ([]intake.CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+selectCallColumns+` FROM calls ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	var out []intake.CallRecord
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CallByID fetches one call record. Returns ErrNotFound when absent.
func (s *Store) CallByID(ctx context.Context, callID string) (intake.CallRecord, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+selectCallColumns+` FROM calls WHERE call_id = $1`, callID)
	rec, err := scanCall(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return intake.CallRecord{}, ErrNotFound
	}
	return rec, err
}

// Stats aggregates totals plus caller-role and asset-type histograms from the
// submission fields.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	out := Stats{CallerRoles: map[string]int{}, AssetTypes: map[string]int{}}

	var avg *float64
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM calls),
			(SELECT COUNT(*) FROM caller_submissions),
			(SELECT AVG(call_duration) FROM calls WHERE call_duration IS NOT NULL)
	`).Scan(&out.TotalCalls, &out.TotalSubmissions, &avg)
	if err != nil {
		return Stats{}, fmt.Errorf("stats totals: %w", err)
	}
	if avg != nil {
		out.AverageDuration = *avg
	}

	if out.CallerRoles, err = s.fieldHistogram(ctx, "caller_role"); err != nil {
		return Stats{}, err
	}
	if out.AssetTypes, err = s.fieldHistogram(ctx, "asset_type"); err != nil {
		return Stats{}, err
	}
	return out, nil
}

func (s *Store) fieldHistogram(ctx context.Context, field string) (map[string]int, error) {
	// field is one of our own column keys, never user input.
	rows, err := s.db.Query(ctx, `
		SELECT fields->>'`+field+`' AS k, COUNT(*)
		FROM caller_submissions
		WHERE fields->>'`+field+`' IS NOT NULL
		GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("stats histogram %s: %w", field, err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, fmt.Errorf("stats histogram %s: %w", field, err)
		}
		out[k] = n
	}
	return out, rows.Err()
}

func scanCall(row pgx.Row) (intake.CallRecord, error) {
	var rec intake.CallRecord
	var transcript, metadata []byte
	err := row.Scan(
		&rec.CallID,
		&rec.AssistantID,
		&rec.DurationSeconds,
		&rec.Status,
		&rec.RecordingURL,
		&rec.Summary,
		&rec.SuccessEvaluation,
		&rec.PhoneNumber,
		&rec.StartedAt,
		&rec.EndedAt,
		&rec.EndReason,
		&rec.Cost,
		&transcript,
		&metadata,
		&rec.CreatedAt,
	)
	if err != nil {
		return intake.CallRecord{}, err
	}
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &rec.Transcript); err != nil {
			return intake.CallRecord{}, fmt.Errorf("decode transcript: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return intake.CallRecord{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return rec, nil
}
