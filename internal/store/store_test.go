package store

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"intake-platform/internal/intake"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func TestSaveEndOfCall(t *testing.T) {
	t.Parallel()

	rec := intake.CallRecord{
		CallID:          "call-1",
		AssistantID:     "asst-1",
		DurationSeconds: f64(42.5),
		Status:          str("completed"),
		Summary:         str("Owner wants a valuation"),
		Transcript:      []intake.TranscriptEntry{{Role: "user", Content: "hi"}},
		Metadata:        map[string]any{"end_reason": "customer-ended-call"},
	}
	sub := &intake.Submission{
		CallID:       "call-1",
		FunctionName: intake.FunctionCallerSubmission,
		Info:         intake.CallerInfo{CallerName: "Jane Doe"},
	}

	tests := []struct {
		name      string
		sub       *intake.Submission
		setupMock func(pgxmock.PgxPoolIface)
		wantErr   bool
	}{
		{
			name: "upsert and paired submission in one transaction",
			sub:  sub,
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO calls`).
					WithArgs(
						"call-1",
						"asst-1",
						f64(42.5),
						str("completed"),
						(*string)(nil),
						str("Owner wants a valuation"),
						(*string)(nil),
						(*string)(nil),
						(*string)(nil),
						(*string)(nil),
						(*string)(nil),
						(*float64)(nil),
						pgxmock.AnyArg(),
						pgxmock.AnyArg(),
					).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectQuery(`INSERT INTO caller_submissions`).
					WithArgs(
						"call-1",
						(*int64)(nil),
						"tool-calls",
						(*string)(nil),
						intake.FunctionCallerSubmission,
						pgxmock.AnyArg(),
						pgxmock.AnyArg(),
					).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
				mock.ExpectCommit()
			},
		},
		{
			name: "upsert only when no caller info",
			sub:  nil,
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO calls`).
					WithArgs(
						"call-1", "asst-1",
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "submission failure rolls back the upsert",
			sub:  sub,
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO calls`).
					WithArgs(
						"call-1", "asst-1",
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectQuery(`INSERT INTO caller_submissions`).
					WithArgs(
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(),
					).
					WillReturnError(errors.New("insert failed"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("failed to create pgx mock: %v", err)
			}
			defer mock.Close()

			tc.setupMock(mock)

			s := New(mock, slog.Default())
			err = s.SaveEndOfCall(context.Background(), rec, tc.sub)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tc.wantErr)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestSaveSubmission(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	ts := int64(1700000000)
	tcID := "tc1"
	msgType := "tool-calls"

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO caller_submissions`).
		WithArgs(
			"call-2",
			&ts,
			"tool-calls",
			&tcID,
			intake.FunctionCallerSubmission,
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	s := New(mock, slog.Default())
	id, err := s.SaveSubmission(context.Background(), intake.Submission{
		CallID:          "call-2",
		SourceTimestamp: &ts,
		MessageType:     &msgType,
		ToolCallID:      &tcID,
		FunctionName:    intake.FunctionCallerSubmission,
		Info:            intake.CallerInfo{CallerName: "Jane"},
		RawPayload:      map[string]any{"type": "tool-calls"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if id != 11 {
		t.Fatalf("id=%d, want 11", id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveSubmissionDefaults(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	// Empty call id and missing message type fall back to sentinels.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO caller_submissions`).
		WithArgs(
			intake.UnknownCallID,
			(*int64)(nil),
			"tool-calls",
			(*string)(nil),
			intake.FunctionCallerSubmission,
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	s := New(mock, slog.Default())
	if _, err := s.SaveSubmission(context.Background(), intake.Submission{
		FunctionName: intake.FunctionCallerSubmission,
	}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCallByID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM calls WHERE call_id = \$1`).
		WithArgs("call-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"call_id", "assistant_id", "call_duration", "call_status",
			"recording_url", "summary", "success_evaluation",
			"phone_number", "started_at", "ended_at", "end_reason", "cost",
			"transcript", "metadata", "created_at",
		}).AddRow(
			"call-1", "asst-1", f64(30.0), str("completed"),
			(*string)(nil), str("summary"), (*string)(nil),
			(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*float64)(nil),
			[]byte(`[{"role":"user","content":"hi"}]`), []byte(`{"cost":0.1}`), created,
		))

	s := New(mock, slog.Default())
	rec, err := s.CallByID(context.Background(), "call-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rec.CallID != "call-1" || rec.Summary == nil || *rec.Summary != "summary" {
		t.Fatalf("record: %+v", rec)
	}
	if len(rec.Transcript) != 1 || rec.Transcript[0].Content != "hi" {
		t.Fatalf("transcript: %+v", rec.Transcript)
	}
	if rec.Metadata["cost"] != 0.1 {
		t.Fatalf("metadata: %+v", rec.Metadata)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCallByIDNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT (.+) FROM calls WHERE call_id = \$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"call_id"}))

	s := New(mock, slog.Default())
	if _, err := s.CallByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(pgxmock.NewRows([]string{"calls", "submissions", "avg"}).
			AddRow(12, 8, f64(95.5)))
	mock.ExpectQuery(`fields->>'caller_role'`).
		WillReturnRows(pgxmock.NewRows([]string{"k", "count"}).
			AddRow("owner", 5).AddRow("tenant", 3))
	mock.ExpectQuery(`fields->>'asset_type'`).
		WillReturnRows(pgxmock.NewRows([]string{"k", "count"}).
			AddRow("office", 4))

	s := New(mock, slog.Default())
	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if stats.TotalCalls != 12 || stats.TotalSubmissions != 8 || stats.AverageDuration != 95.5 {
		t.Fatalf("totals: %+v", stats)
	}
	if stats.CallerRoles["owner"] != 5 || stats.CallerRoles["tenant"] != 3 {
		t.Fatalf("roles: %+v", stats.CallerRoles)
	}
	if stats.AssetTypes["office"] != 4 {
		t.Fatalf("asset types: %+v", stats.AssetTypes)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
