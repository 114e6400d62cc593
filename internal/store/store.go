package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"intake-platform/internal/intake"
)

// ErrNotFound is returned when a call id has no record.
var ErrNotFound = errors.New("store: call not found")

// DB is the minimal pool surface the store needs. *pgxpool.Pool satisfies it;
// so does a pgxmock pool in tests.
type DB interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists call records (upsert by call id) and caller submissions
// (append only).
type Store struct {
	db  DB
	log *slog.Logger
}

func New(db DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, log: log}
}

// Init creates the two tables when absent. There is no migration machinery;
// schema changes are out of scope.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS calls (
			call_id            TEXT PRIMARY KEY,
			assistant_id       TEXT NOT NULL,
			call_duration      DOUBLE PRECISION,
			call_status        TEXT,
			recording_url      TEXT,
			summary            TEXT,
			success_evaluation TEXT,
			phone_number       TEXT,
			started_at         TEXT,
			ended_at           TEXT,
			end_reason         TEXT,
			cost               DOUBLE PRECISION,
			transcript         JSONB NOT NULL DEFAULT '[]',
			metadata           JSONB NOT NULL DEFAULT '{}',
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS caller_submissions (
			id            BIGSERIAL PRIMARY KEY,
			call_id       TEXT NOT NULL,
			source_ts     BIGINT,
			message_type  TEXT,
			tool_call_id  TEXT,
			function_name TEXT NOT NULL,
			fields        JSONB NOT NULL DEFAULT '{}',
			raw_payload   JSONB,
			submitted_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_caller_submissions_call_id ON caller_submissions (call_id)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

const upsertCallSQL = `
	INSERT INTO calls (
		call_id, assistant_id, call_duration, call_status,
		recording_url, summary, success_evaluation,
		phone_number, started_at, ended_at, end_reason, cost,
		transcript, metadata
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	ON CONFLICT (call_id) DO UPDATE SET
		assistant_id = EXCLUDED.assistant_id,
		call_duration = EXCLUDED.call_duration,
		call_status = EXCLUDED.call_status,
		recording_url = EXCLUDED.recording_url,
		summary = EXCLUDED.summary,
		success_evaluation = EXCLUDED.success_evaluation,
		phone_number = EXCLUDED.phone_number,
		started_at = EXCLUDED.started_at,
		ended_at = EXCLUDED.ended_at,
		end_reason = EXCLUDED.end_reason,
		cost = EXCLUDED.cost,
		transcript = EXCLUDED.transcript,
		metadata = EXCLUDED.metadata`

const insertSubmissionSQL = `
	INSERT INTO caller_submissions (
		call_id, source_ts, message_type, tool_call_id,
		function_name, fields, raw_payload
	) VALUES ($1,$2,$3,$4,$5,$6,$7)
	RETURNING id`

// SaveEndOfCall upserts the call record and, when sub is non-nil, appends the
// companion submission. Both writes share one transaction so a crash cannot
// leave the pair half-written.
func (s *Store) SaveEndOfCall(ctx context.Context, rec intake.CallRecord, sub *intake.Submission) (err error) {
	transcript, metadata, err := encodeCallJSON(rec)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.log.Error("rollback failed", "call_id", rec.CallID, "err", rbErr)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("commit tx: %w", commitErr)
		}
	}()

	if _, err = tx.Exec(ctx, upsertCallSQL,
		rec.CallID,
		rec.AssistantID,
		rec.DurationSeconds,
		rec.Status,
		rec.RecordingURL,
		rec.Summary,
		rec.SuccessEvaluation,
		rec.PhoneNumber,
		rec.StartedAt,
		rec.EndedAt,
		rec.EndReason,
		rec.Cost,
		transcript,
		metadata,
	); err != nil {
		return fmt.Errorf("upsert call: %w", err)
	}

	if sub != nil {
		var id int64
		if id, err = s.insertSubmission(ctx, tx, *sub); err != nil {
			return err
		}
		s.log.Info("saved caller submission", "call_id", sub.CallID, "submission_id", id)
	}

	s.log.Info("saved call record", "call_id", rec.CallID)
	return nil
}

// SaveSubmission appends one caller submission outside any call upsert (the
// live tool-call path) and returns the row id.
func (s *Store) SaveSubmission(ctx context.Context, sub intake.Submission) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.log.Error("rollback failed", "call_id", sub.CallID, "err", rbErr)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("commit tx: %w", commitErr)
		}
	}()

	id, err = s.insertSubmission(ctx, tx, sub)
	if err != nil {
		return 0, err
	}
	s.log.Info("saved caller submission", "call_id", sub.CallID, "submission_id", id)
	return id, nil
}

func (s *Store) insertSubmission(ctx context.Context, tx pgx.Tx, sub intake.Submission) (int64, error) {
	fields, err := json.Marshal(sub.Info.Fields())
	if err != nil {
		return 0, fmt.Errorf("encode fields: %w", err)
	}

	var rawPayload []byte
	if sub.RawPayload != nil {
		if rawPayload, err = json.Marshal(sub.RawPayload); err != nil {
			return 0, fmt.Errorf("encode raw payload: %w", err)
		}
	}

	callID := sub.CallID
	if callID == "" {
		callID = intake.UnknownCallID
	}
	// Historical rows always carried a type; default matches the provider's
	// current event name.
	messageType := "tool-calls"
	if sub.MessageType != nil {
		messageType = *sub.MessageType
	}

	var id int64
	err = tx.QueryRow(ctx, insertSubmissionSQL,
		callID,
		sub.SourceTimestamp,
		messageType,
		sub.ToolCallID,
		sub.FunctionName,
		fields,
		rawPayload,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	return id, nil
}

func encodeCallJSON(rec intake.CallRecord) (transcript, metadata []byte, err error) {
	t := rec.Transcript
	if t == nil {
		t = []intake.TranscriptEntry{}
	}
	if transcript, err = json.Marshal(t); err != nil {
		return nil, nil, fmt.Errorf("encode transcript: %w", err)
	}
	m := rec.Metadata
	if m == nil {
		m = map[string]any{}
	}
	if metadata, err = json.Marshal(m); err != nil {
		return nil, nil, fmt.Errorf("encode metadata: %w", err)
	}
	return transcript, metadata, nil
}
