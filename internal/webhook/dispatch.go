package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"intake-platform/internal/intake"
)

// Event types the provider delivers to the webhook endpoint.
const (
	TypeEndOfCallReport = "end-of-call-report"
	TypeFunctionCall    = "function-call"
	TypeToolCalls       = "tool-calls"
	TypeStatusUpdate    = "status-update"
	TypeTranscript      = "transcript"
)

// State tracks one event through the dispatcher. Every event starts in
// StateReceived and ends in exactly one terminal state.
type State string

const (
	StateReceived  State = "received"
	StateSuccess   State = "success"
	StateError     State = "error"
	StateUnhandled State = "received-unhandled"
)

// Ack is the structured acknowledgment returned to the provider. Field names
// follow the provider's webhook contract: tool acknowledgments use
// result/toolCallId, the rest use status.
type Ack struct {
	Status      string `json:"status,omitempty"`
	CallID      string `json:"call_id,omitempty"`
	DataSaved   bool   `json:"data_saved,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	Error       string `json:"error,omitempty"`
	Result      string `json:"result,omitempty"`
	ToolCallID  string `json:"toolCallId,omitempty"`
}

// Store is the persistence surface the dispatcher needs.
type Store interface {
	// SaveEndOfCall upserts the call record and, when sub is non-nil, appends
	// the submission in the same transaction.
	SaveEndOfCall(ctx context.Context, rec intake.CallRecord, sub *intake.Submission) error
	// SaveSubmission appends one caller submission and returns its row id.
	SaveSubmission(ctx context.Context, sub intake.Submission) (int64, error)
}

// Sink receives flattened caller submissions, best effort. The boolean is the
// only outcome signal; a false never interrupts the caller.
type Sink interface {
	Deliver(ctx context.Context, sub intake.Submission) bool
}

// Archiver appends call records to the flat-file archive. Failures are logged
// and swallowed; the archive is not a source of truth.
type Archiver interface {
	Append(rec intake.CallRecord) error
}

// Dispatcher routes normalized events to handlers by declared type.
// Handler-internal failures become error acks; the dispatcher itself never
// propagates an error for a decodable event.
type Dispatcher struct {
	store   Store
	sink    Sink
	archive Archiver
	log     *slog.Logger
	now     func() time.Time
}

func NewDispatcher(store Store, sink Sink, archive Archiver, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		store:   store,
		sink:    sink,
		archive: archive,
		log:     log,
		now:     time.Now,
	}
}

// Dispatch routes one event and returns its acknowledgment and terminal state.
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) (Ack, State) {
	d.log.Info("webhook received", "type", evt.DeclaredType, "state", StateReceived)

	switch evt.DeclaredType {
	case TypeEndOfCallReport:
		return d.guard(ctx, evt, d.handleEndOfCall)
	case TypeFunctionCall, TypeToolCalls:
		return d.guard(ctx, evt, d.handleFunctionCall)
	case TypeStatusUpdate:
		return d.handleStatusUpdate(evt), StateSuccess
	case TypeTranscript:
		return d.handleTranscript(evt), StateSuccess
	default:
		d.log.Info("unhandled webhook type", "type", evt.DeclaredType)
		return Ack{Status: "received", MessageType: evt.DeclaredType}, StateUnhandled
	}
}

// guard is the handler boundary: errors and panics both collapse into an
// error-status ack so the provider always gets a structured response.
func (d *Dispatcher) guard(ctx context.Context, evt Event, h func(context.Context, Event) (Ack, error)) (ack Ack, st State) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panic", "type", evt.DeclaredType, "panic", fmt.Sprint(r))
			ack = Ack{Status: "error", Error: fmt.Sprintf("internal failure: %v", r)}
			st = StateError
		}
	}()

	ack, err := h(ctx, evt)
	if err != nil {
		d.log.Error("handler failed", "type", evt.DeclaredType, "err", err, "payload", string(evt.RawBody))
		errAck := Ack{Status: "error", Error: err.Error(), ToolCallID: ack.ToolCallID}
		return errAck, StateError
	}
	return ack, StateSuccess
}
