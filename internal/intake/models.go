package intake

import (
	"fmt"
	"strings"
	"time"
)

// FunctionCallerSubmission is the assistant tool that submits caller details.
// Function-call events with any other function name are acknowledged but not persisted.
const FunctionCallerSubmission = "submit_caller_information"

// UnknownCallID is the sentinel used when an event carries no discoverable call id.
const UnknownCallID = "unknown"

// CallerInfo is the structured data the assistant extracts during a call.
// Every field is optional; persistence never enforces required fields.
type CallerInfo struct {
	CallerName       string `json:"caller_name,omitempty"`
	PhoneNumber      string `json:"phone_number,omitempty"`
	Email            string `json:"email,omitempty"`
	CallerRole       string `json:"caller_role,omitempty"` // owner, buyer, broker, lender, tenant, landlord, investor, other
	AssetType        string `json:"asset_type,omitempty"`
	Location         string `json:"location,omitempty"`
	ReasonForCalling string `json:"reason_for_calling,omitempty"`
	DealSize         string `json:"deal_size,omitempty"`
	Urgency          string `json:"urgency,omitempty"`
	AdditionalNotes  string `json:"additional_notes,omitempty"`
	InquirySummary   string `json:"inquiry_summary,omitempty"`
}

// IsZero reports whether no field was supplied at all.
func (ci CallerInfo) IsZero() bool {
	return ci == CallerInfo{}
}

// Fields returns the non-empty attributes as a map, the shape persisted in
// caller_submissions.fields.
func (ci CallerInfo) Fields() map[string]string {
	out := map[string]string{}
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put("caller_name", ci.CallerName)
	put("phone_number", ci.PhoneNumber)
	put("email", ci.Email)
	put("caller_role", ci.CallerRole)
	put("asset_type", ci.AssetType)
	put("location", ci.Location)
	put("reason_for_calling", ci.ReasonForCalling)
	put("deal_size", ci.DealSize)
	put("urgency", ci.Urgency)
	put("additional_notes", ci.AdditionalNotes)
	put("inquiry_summary", ci.InquirySummary)
	return out
}

// Summary renders the caller details as the multi-line block written to the
// operational log after a call.
func (ci CallerInfo) Summary() string {
	var lines []string
	add := func(label, v string) {
		if v != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", label, v))
		}
	}
	add("Name", ci.CallerName)
	add("Phone", ci.PhoneNumber)
	add("Email", ci.Email)
	add("Role", ci.CallerRole)
	add("Asset Type", ci.AssetType)
	add("Location", ci.Location)
	add("Deal Size", ci.DealSize)
	add("Urgency", ci.Urgency)
	add("Summary", ci.InquirySummary)
	add("Notes", ci.AdditionalNotes)
	if len(lines) == 0 {
		return "No caller information collected"
	}
	return strings.Join(lines, "\n")
}

// TranscriptEntry is one utterance in a call transcript.
type TranscriptEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// CallRecord is the one-row-per-call shape upserted by call id. Nullable
// upstream values stay pointers; timestamps are kept as the upstream strings
// because their format is provider-controlled.
type CallRecord struct {
	CallID            string            `json:"call_id"`
	AssistantID       string            `json:"assistant_id"`
	DurationSeconds   *float64          `json:"call_duration,omitempty"`
	Status            *string           `json:"call_status,omitempty"`
	RecordingURL      *string           `json:"recording_url,omitempty"`
	Summary           *string           `json:"summary,omitempty"`
	SuccessEvaluation *string           `json:"success_evaluation,omitempty"`
	PhoneNumber       *string           `json:"phone_number,omitempty"`
	StartedAt         *string           `json:"started_at,omitempty"`
	EndedAt           *string           `json:"ended_at,omitempty"`
	EndReason         *string           `json:"end_reason,omitempty"`
	Cost              *float64          `json:"cost,omitempty"`
	Transcript        []TranscriptEntry `json:"transcript"`
	CallerInfo        *CallerInfo       `json:"caller_info,omitempty"`
	Metadata          map[string]any    `json:"metadata"`
	CreatedAt         time.Time         `json:"created_at,omitempty"`
}

// Submission is one append-only caller_submissions row. Reprocessing a call
// appends new rows; it never updates old ones.
type Submission struct {
	ID              int64          `json:"id,omitempty"`
	CallID          string         `json:"call_id"`
	SourceTimestamp *int64         `json:"timestamp,omitempty"`
	MessageType     *string        `json:"type,omitempty"`
	ToolCallID      *string        `json:"tool_call_id,omitempty"`
	FunctionName    string         `json:"function_name"`
	Info            CallerInfo     `json:"arguments"`
	RawPayload      map[string]any `json:"raw_payload,omitempty"`
	SubmittedAt     time.Time      `json:"submitted_at,omitempty"`
}
