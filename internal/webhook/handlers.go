package webhook

import (
	"context"
	"fmt"
	"strings"

	"intake-platform/internal/intake"
)

// confirmationMessage is spoken back to the caller by the assistant after a
// successful submission.
const confirmationMessage = "Thank you! I've recorded your information. Our team will reach out to you within 24 hours."

// transcriptLogLimit caps how many transcript lines the call summary logs.
const transcriptLogLimit = 10

// handleEndOfCall builds the full call record from an end-of-call report,
// persists it (upsert by call id), and, when structured caller data is
// present, also appends a submission and attempts sink delivery. Sink failure
// never rolls back persistence.
func (d *Dispatcher) handleEndOfCall(ctx context.Context, evt Event) (Ack, error) {
	rec := BuildCallRecord(evt.Message, d.log)

	var sub *intake.Submission
	if rec.CallerInfo != nil {
		sub = &intake.Submission{
			CallID:       rec.CallID,
			FunctionName: intake.FunctionCallerSubmission,
			Info:         *rec.CallerInfo,
		}
	}

	if err := d.store.SaveEndOfCall(ctx, rec, sub); err != nil {
		return Ack{CallID: rec.CallID}, fmt.Errorf("persist end-of-call: %w", err)
	}

	if d.archive != nil {
		if err := d.archive.Append(rec); err != nil {
			d.log.Warn("call archive append failed", "call_id", rec.CallID, "err", err)
		}
	}

	if sub != nil {
		if ok := d.sink.Deliver(ctx, *sub); !ok {
			d.log.Warn("sink delivery failed", "call_id", rec.CallID)
		}
	}

	d.logCallSummary(rec)

	return Ack{Status: "success", CallID: rec.CallID, DataSaved: true}, nil
}

// handleFunctionCall processes tool invocations. Only the caller-information
// submission function persists anything; every other function name gets a
// bare acknowledgment. Failures are converted to result-shaped error acks so
// the assistant always receives a response it can speak to.
func (d *Dispatcher) handleFunctionCall(ctx context.Context, evt Event) (Ack, error) {
	inv, found := LocateToolInvocation(evt.Message)
	if !found {
		d.log.Warn("no function call found in message", "payload", string(evt.RawBody))
		return Ack{Result: "Function call received"}, nil
	}

	d.log.Info("function call",
		"function", inv.FunctionName,
		"tool_call_id", inv.ToolCallID,
		"source", inv.Source,
	)

	if inv.FunctionName != intake.FunctionCallerSubmission {
		return Ack{Result: "Function call received"}, nil
	}

	info := decodeCallerInfo(inv.Arguments)
	sub := intake.Submission{
		CallID:       intake.UnknownCallID,
		FunctionName: intake.FunctionCallerSubmission,
		Info:         *info,
		RawPayload:   evt.Message,
	}
	if call := asMap(evt.Message["call"]); stringField(call, "id") != "" {
		sub.CallID = stringField(call, "id")
	}
	if t := stringField(evt.Message, "type"); t != "" {
		sub.MessageType = &t
	}
	if ts := floatField(evt.Message, "timestamp"); ts != nil {
		n := int64(*ts)
		sub.SourceTimestamp = &n
	}
	if inv.ToolCallID != "" {
		sub.ToolCallID = &inv.ToolCallID
	}

	id, err := d.store.SaveSubmission(ctx, sub)
	if err != nil {
		d.log.Error("caller submission persist failed", "call_id", sub.CallID, "err", err)
		return Ack{Result: "Error: " + err.Error(), ToolCallID: inv.ToolCallID}, nil
	}

	d.log.Info("caller information submitted",
		"call_id", sub.CallID,
		"submission_id", id,
		"summary", info.Summary(),
	)

	if ok := d.sink.Deliver(ctx, sub); !ok {
		d.log.Warn("sink delivery failed", "call_id", sub.CallID)
	}

	return Ack{Result: confirmationMessage, ToolCallID: inv.ToolCallID}, nil
}

// handleStatusUpdate is a log-only pass-through.
func (d *Dispatcher) handleStatusUpdate(evt Event) Ack {
	d.log.Info("status update", "status", stringField(evt.Message, "status"))
	return Ack{Status: "received"}
}

// handleTranscript logs live transcript chunks, final ones only.
func (d *Dispatcher) handleTranscript(evt Event) Ack {
	if stringField(evt.Message, "transcriptType") == "final" {
		d.log.Info("transcript",
			"role", stringField(evt.Message, "role"),
			"transcript", stringField(evt.Message, "transcript"),
		)
	}
	return Ack{Status: "received"}
}

// logCallSummary emits the human-readable post-call block. Observability
// output only; nothing downstream consumes it.
func (d *Dispatcher) logCallSummary(rec intake.CallRecord) {
	var b strings.Builder
	fmt.Fprintf(&b, "Call ID: %s\n", rec.CallID)
	fmt.Fprintf(&b, "Duration: %s seconds\n", orNA(floatString(rec.DurationSeconds)))
	fmt.Fprintf(&b, "Status: %s\n", orNA(deref(rec.Status)))
	if rec.Summary != nil {
		fmt.Fprintf(&b, "AI Summary: %s\n", *rec.Summary)
	}
	if rec.SuccessEvaluation != nil {
		fmt.Fprintf(&b, "Success Evaluation: %s\n", *rec.SuccessEvaluation)
	}
	if rec.CallerInfo != nil {
		fmt.Fprintf(&b, "Caller Information:\n%s\n", rec.CallerInfo.Summary())
	}
	if n := len(rec.Transcript); n > 0 {
		fmt.Fprintf(&b, "Transcript (%d messages):\n", n)
		for i, msg := range rec.Transcript {
			if i == transcriptLogLimit {
				fmt.Fprintf(&b, "... and %d more messages\n", n-transcriptLogLimit)
				break
			}
			role := "USER"
			if msg.Role == "assistant" {
				role = "ASSISTANT"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, truncate(msg.Content, 100))
		}
	}
	d.log.Info("call summary", "call_id", rec.CallID, "summary", b.String())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatString(f *float64) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%g", *f)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
