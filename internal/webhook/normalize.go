package webhook

import (
	"encoding/json"
	"log/slog"

	"intake-platform/internal/intake"
)

// Defensive extraction over provider payloads. The upstream has shipped at
// least three shapes for the same logical tool invocation, and most fields are
// optional, so everything here narrows types instead of asserting them.

// asMap narrows an arbitrary value to a map. Non-map values (strings, nulls,
// lists) yield an empty map so callers never branch on failure.
func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// floatField returns a nullable numeric. JSON numbers decode as float64;
// values pass through without unit conversion or validation.
func floatField(m map[string]any, key string) *float64 {
	if f, ok := m[key].(float64); ok {
		return &f
	}
	return nil
}

func optString(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok {
		return &s
	}
	return nil
}

// ToolInvocation is a located function/tool call, normalized across the
// historical payload shapes.
type ToolInvocation struct {
	ToolCallID   string
	FunctionName string
	Arguments    map[string]any
	// Source names the strategy that matched, for logging.
	Source string
}

// toolCallStrategy yields the raw invocation object from one known location.
type toolCallStrategy struct {
	source  string
	extract func(msg map[string]any) (map[string]any, bool)
}

// toolCallStrategies are tried in order; first match wins. The order encodes
// the provider's payload history: the legacy "functionCall" field, the single
// "toolCall" field, then the first element of "toolCallList".
var toolCallStrategies = []toolCallStrategy{
	{
		source: "functionCall",
		extract: func(msg map[string]any) (map[string]any, bool) {
			m, ok := msg["functionCall"].(map[string]any)
			return m, ok
		},
	},
	{
		source: "toolCall",
		extract: func(msg map[string]any) (map[string]any, bool) {
			m, ok := msg["toolCall"].(map[string]any)
			return m, ok
		},
	},
	{
		source: "toolCallList",
		extract: func(msg map[string]any) (map[string]any, bool) {
			list, ok := msg["toolCallList"].([]any)
			if !ok || len(list) == 0 {
				return nil, false
			}
			m, ok := list[0].(map[string]any)
			return m, ok
		},
	},
}

// LocateToolInvocation applies the extraction strategies in priority order and
// normalizes the first hit. Returns ok=false when no location held an object.
func LocateToolInvocation(msg map[string]any) (ToolInvocation, bool) {
	for _, s := range toolCallStrategies {
		raw, ok := s.extract(msg)
		if !ok {
			continue
		}
		inv := ToolInvocation{
			ToolCallID: stringField(raw, "id"),
			Source:     s.source,
		}

		// Name lives either top-level or under a nested "function" object.
		inv.FunctionName = stringField(raw, "name")
		fn := asMap(raw["function"])
		if inv.FunctionName == "" {
			inv.FunctionName = stringField(fn, "name")
		}

		args := raw["parameters"]
		if args == nil {
			args = fn["arguments"]
		}
		inv.Arguments = decodeArguments(args)
		return inv, true
	}
	return ToolInvocation{}, false
}

// decodeArguments accepts arguments either as an already-parsed object or as a
// JSON-encoded string, falling back to an empty map on parse failure.
func decodeArguments(v any) map[string]any {
	switch args := v.(type) {
	case map[string]any:
		return args
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(args), &m); err != nil || m == nil {
			return map[string]any{}
		}
		return m
	default:
		return map[string]any{}
	}
}

// ExtractTranscript pulls the ordered transcript out of a message, skipping
// entries that are not objects. Role defaults to "unknown", content to "".
func ExtractTranscript(msg map[string]any) []intake.TranscriptEntry {
	list, ok := msg["transcript"].([]any)
	if !ok {
		return nil
	}
	out := make([]intake.TranscriptEntry, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entry := intake.TranscriptEntry{
			Role:      stringField(m, "role"),
			Content:   stringField(m, "content"),
			Timestamp: stringField(m, "timestamp"),
		}
		if entry.Role == "" {
			entry.Role = "unknown"
		}
		out = append(out, entry)
	}
	return out
}

// ExtractCallerInfo looks for analysis.structuredData and decodes it into a
// CallerInfo. Unknown keys are ignored; all keys are optional. Returns nil when
// the path is absent or not an object.
func ExtractCallerInfo(analysis map[string]any, log *slog.Logger) *intake.CallerInfo {
	raw, present := analysis["structuredData"]
	if !present {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		if log != nil {
			log.Warn("analysis.structuredData is not an object, ignoring")
		}
		return nil
	}
	return decodeCallerInfo(m)
}

// decodeCallerInfo converts a loose map into a CallerInfo via a JSON
// round-trip so mistyped values degrade to zero values instead of failing.
func decodeCallerInfo(m map[string]any) *intake.CallerInfo {
	buf, err := json.Marshal(m)
	if err != nil {
		return &intake.CallerInfo{}
	}
	var info intake.CallerInfo
	// Unmarshal of mixed types only fails per-field; a failed decode still
	// leaves the successfully decoded fields populated.
	_ = json.Unmarshal(buf, &info)
	return &info
}

// BuildCallRecord composes a CallRecord from an end-of-call-report message.
// All fields degrade to nil/empty when absent or mistyped.
func BuildCallRecord(msg map[string]any, log *slog.Logger) intake.CallRecord {
	call := asMap(msg["call"])
	analysis := asMap(msg["analysis"])

	callID := stringField(call, "id")
	if callID == "" {
		callID = intake.UnknownCallID
	}
	assistantID := stringField(call, "assistantId")
	if assistantID == "" {
		assistantID = intake.UnknownCallID
	}

	rec := intake.CallRecord{
		CallID:            callID,
		AssistantID:       assistantID,
		DurationSeconds:   floatField(call, "duration"),
		Status:            optString(call, "status"),
		RecordingURL:      optString(msg, "recordingUrl"),
		Summary:           optString(analysis, "summary"),
		SuccessEvaluation: evaluationString(analysis["successEvaluation"]),
		PhoneNumber:       optString(call, "phoneNumber"),
		StartedAt:         optString(call, "startedAt"),
		EndedAt:           optString(call, "endedAt"),
		EndReason:         optString(msg, "endedReason"),
		Cost:              floatField(msg, "cost"),
		Transcript:        ExtractTranscript(msg),
		CallerInfo:        ExtractCallerInfo(analysis, log),
		Metadata: map[string]any{
			"phone_number": call["phoneNumber"],
			"started_at":   call["startedAt"],
			"ended_at":     call["endedAt"],
			"end_reason":   msg["endedReason"],
			"cost":         msg["cost"],
			"analysis":     analysis,
		},
	}
	return rec
}

// evaluationString normalizes successEvaluation, which upstream sends as
// either a string or a boolean depending on the rubric type.
func evaluationString(v any) *string {
	switch ev := v.(type) {
	case string:
		return &ev
	case bool:
		s := "false"
		if ev {
			s = "true"
		}
		return &s
	default:
		return nil
	}
}
