package webhook

import (
	"encoding/json"
	"log/slog"
	"testing"
)

func mustMessage(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("bad test payload: %v", err)
	}
	return m
}

func TestLocateToolInvocation_PriorityOrder(t *testing.T) {
	tests := []struct {
		name       string
		msg        string
		wantFound  bool
		wantSource string
		wantName   string
		wantID     string
	}{
		{
			name:       "legacy functionCall wins over toolCallList",
			msg:        `{"functionCall":{"name":"submit_caller_information","parameters":{"caller_name":"A"}},"toolCallList":[{"id":"tc9","function":{"name":"other"}}]}`,
			wantFound:  true,
			wantSource: "functionCall",
			wantName:   "submit_caller_information",
		},
		{
			name:       "toolCall wins over toolCallList",
			msg:        `{"toolCall":{"id":"tc1","function":{"name":"submit_caller_information"}},"toolCallList":[{"id":"tc2"}]}`,
			wantFound:  true,
			wantSource: "toolCall",
			wantName:   "submit_caller_information",
			wantID:     "tc1",
		},
		{
			name:       "toolCallList first element",
			msg:        `{"toolCallList":[{"id":"tc1","function":{"name":"submit_caller_information"}},{"id":"tc2"}]}`,
			wantFound:  true,
			wantSource: "toolCallList",
			wantName:   "submit_caller_information",
			wantID:     "tc1",
		},
		{
			name:      "empty toolCallList is no match",
			msg:       `{"toolCallList":[]}`,
			wantFound: false,
		},
		{
			name:      "mistyped functionCall is skipped, not fatal",
			msg:       `{"functionCall":"oops","toolCall":{"id":"tc3","name":"x"}}`,
			wantFound: true,
			wantID:    "tc3",
		},
		{
			name:      "nothing present",
			msg:       `{"type":"tool-calls"}`,
			wantFound: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv, found := LocateToolInvocation(mustMessage(t, tc.msg))
			if found != tc.wantFound {
				t.Fatalf("found=%v, want %v", found, tc.wantFound)
			}
			if !found {
				return
			}
			if tc.wantSource != "" && inv.Source != tc.wantSource {
				t.Fatalf("source=%q, want %q", inv.Source, tc.wantSource)
			}
			if tc.wantName != "" && inv.FunctionName != tc.wantName {
				t.Fatalf("name=%q, want %q", inv.FunctionName, tc.wantName)
			}
			if tc.wantID != "" && inv.ToolCallID != tc.wantID {
				t.Fatalf("id=%q, want %q", inv.ToolCallID, tc.wantID)
			}
		})
	}
}

func TestLocateToolInvocation_ArgumentsStringOrMap(t *testing.T) {
	// Arguments as a JSON-encoded string.
	msg := mustMessage(t, `{"toolCall":{"id":"tc1","function":{"name":"submit_caller_information","arguments":"{\"caller_name\":\"Jane Doe\"}"}}}`)
	inv, found := LocateToolInvocation(msg)
	if !found {
		t.Fatal("expected invocation")
	}
	if inv.Arguments["caller_name"] != "Jane Doe" {
		t.Fatalf("string arguments not parsed: %v", inv.Arguments)
	}

	// Arguments as an already-parsed object.
	msg = mustMessage(t, `{"toolCall":{"function":{"name":"x","arguments":{"email":"j@x.com"}}}}`)
	inv, _ = LocateToolInvocation(msg)
	if inv.Arguments["email"] != "j@x.com" {
		t.Fatalf("map arguments not passed through: %v", inv.Arguments)
	}

	// Unparseable string falls back to empty map.
	msg = mustMessage(t, `{"toolCall":{"function":{"name":"x","arguments":"not json"}}}`)
	inv, _ = LocateToolInvocation(msg)
	if len(inv.Arguments) != 0 {
		t.Fatalf("expected empty arguments, got %v", inv.Arguments)
	}

	// "parameters" takes precedence over nested arguments.
	msg = mustMessage(t, `{"functionCall":{"name":"x","parameters":{"phone_number":"555"},"function":{"arguments":{"phone_number":"999"}}}}`)
	inv, _ = LocateToolInvocation(msg)
	if inv.Arguments["phone_number"] != "555" {
		t.Fatalf("parameters should win: %v", inv.Arguments)
	}
}

func TestExtractTranscript(t *testing.T) {
	msg := mustMessage(t, `{"transcript":[
		{"role":"assistant","content":"Hi!","timestamp":"t0"},
		"not an object",
		{"content":"no role"},
		{"role":"user"},
		42
	]}`)

	got := ExtractTranscript(msg)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Role != "assistant" || got[0].Content != "Hi!" || got[0].Timestamp != "t0" {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
	if got[1].Role != "unknown" || got[1].Content != "no role" {
		t.Fatalf("role should default to unknown: %+v", got[1])
	}
	if got[2].Role != "user" || got[2].Content != "" {
		t.Fatalf("content should default to empty: %+v", got[2])
	}

	if got := ExtractTranscript(mustMessage(t, `{"transcript":"raw text"}`)); got != nil {
		t.Fatalf("non-list transcript should yield nil, got %v", got)
	}
}

func TestExtractCallerInfo(t *testing.T) {
	log := slog.Default()

	analysis := mustMessage(t, `{"structuredData":{"caller_name":"Jane","unknown_key":"ignored","urgency":"immediate"}}`)
	info := ExtractCallerInfo(analysis, log)
	if info == nil {
		t.Fatal("expected caller info")
	}
	if info.CallerName != "Jane" || info.Urgency != "immediate" {
		t.Fatalf("unexpected info: %+v", info)
	}

	if info := ExtractCallerInfo(mustMessage(t, `{"summary":"no structured data"}`), log); info != nil {
		t.Fatalf("absent path should yield nil, got %+v", info)
	}
	if info := ExtractCallerInfo(mustMessage(t, `{"structuredData":"a string"}`), log); info != nil {
		t.Fatalf("non-object structuredData should yield nil, got %+v", info)
	}
}

func TestBuildCallRecord(t *testing.T) {
	msg := mustMessage(t, `{
		"call":{"id":"call-1","assistantId":"asst-1","duration":42.5,"status":"completed","phoneNumber":"+15550001","startedAt":"2026-08-30T10:00:00Z","endedAt":"2026-08-30T10:05:00Z"},
		"recordingUrl":"https://rec/1.wav",
		"endedReason":"customer-ended-call",
		"cost":0.37,
		"transcript":[{"role":"user","content":"hello"}],
		"analysis":{"summary":"Owner wants valuation","successEvaluation":true,"structuredData":{"caller_name":"Jane","caller_role":"owner"}}
	}`)

	rec := BuildCallRecord(msg, slog.Default())
	if rec.CallID != "call-1" || rec.AssistantID != "asst-1" {
		t.Fatalf("identity: %+v", rec)
	}
	if rec.DurationSeconds == nil || *rec.DurationSeconds != 42.5 {
		t.Fatalf("duration: %v", rec.DurationSeconds)
	}
	if rec.Summary == nil || *rec.Summary != "Owner wants valuation" {
		t.Fatalf("summary: %v", rec.Summary)
	}
	if rec.SuccessEvaluation == nil || *rec.SuccessEvaluation != "true" {
		t.Fatalf("boolean successEvaluation should become string: %v", rec.SuccessEvaluation)
	}
	if rec.Cost == nil || *rec.Cost != 0.37 {
		t.Fatalf("cost: %v", rec.Cost)
	}
	if rec.CallerInfo == nil || rec.CallerInfo.CallerRole != "owner" {
		t.Fatalf("caller info: %+v", rec.CallerInfo)
	}
	if len(rec.Transcript) != 1 || rec.Transcript[0].Content != "hello" {
		t.Fatalf("transcript: %+v", rec.Transcript)
	}
	if rec.Metadata["end_reason"] != "customer-ended-call" {
		t.Fatalf("metadata: %+v", rec.Metadata)
	}
}

func TestBuildCallRecord_MissingEverything(t *testing.T) {
	// call is a string, analysis absent: all fields degrade, nothing panics.
	rec := BuildCallRecord(mustMessage(t, `{"call":"whoops"}`), slog.Default())
	if rec.CallID != "unknown" || rec.AssistantID != "unknown" {
		t.Fatalf("expected sentinel ids, got %+v", rec)
	}
	if rec.DurationSeconds != nil || rec.Status != nil || rec.CallerInfo != nil {
		t.Fatalf("expected nil optionals: %+v", rec)
	}
}

func TestParseEvent(t *testing.T) {
	evt, err := ParseEvent([]byte(`{"message":{"type":"status-update","status":"in-progress"}}`), slog.Default())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if evt.DeclaredType != "status-update" {
		t.Fatalf("type=%q", evt.DeclaredType)
	}

	// message present but not an object: degrade, don't fail.
	evt, err = ParseEvent([]byte(`{"message":"oops"}`), slog.Default())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if evt.DeclaredType != "" || len(evt.Message) != 0 {
		t.Fatalf("expected empty event, got %+v", evt)
	}

	if _, err = ParseEvent([]byte(`{not json`), slog.Default()); err == nil {
		t.Fatal("expected malformed body error")
	}
}
