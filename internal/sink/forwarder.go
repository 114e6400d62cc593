// Package sink delivers caller submissions to the brokerage's spreadsheet
// endpoint. Delivery is best effort: one attempt, bounded timeout, failures
// logged and swallowed. The record store stays the source of truth.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"intake-platform/internal/intake"
)

// DefaultTimeout bounds one delivery attempt end to end.
const DefaultTimeout = 10 * time.Second

// Row is the flattened shape the spreadsheet endpoint ingests, one row per
// caller submission.
type Row struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Inquiry     string `json:"inquiry"`
	Market      string `json:"market"`
	Notes       string `json:"notes"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	AssetType   string `json:"asset_type"`
	CallID      string `json:"call_id"`
	SubmittedAt string `json:"submitted_at"`
}

type Forwarder struct {
	url    string
	client *http.Client
	log    *slog.Logger
	now    func() time.Time
}

// New builds a forwarder for the given sink URL. An empty URL produces a
// forwarder whose Deliver is an immediate no-op failure.
func New(url string, log *slog.Logger) *Forwarder {
	if log == nil {
		log = slog.Default()
	}
	return &Forwarder{
		url:    url,
		client: &http.Client{Timeout: DefaultTimeout},
		log:    log,
		now:    time.Now,
	}
}

// Deliver posts one flattened submission row. The boolean is the only outcome
// signal: timeouts, network errors and non-2xx responses are all soft
// failures. Never retries.
func (f *Forwarder) Deliver(ctx context.Context, sub intake.Submission) bool {
	if f.url == "" {
		f.log.Debug("sink not configured, skipping delivery", "call_id", sub.CallID)
		return false
	}

	payload, err := json.Marshal(f.flatten(sub))
	if err != nil {
		f.log.Error("sink payload encode failed", "call_id", sub.CallID, "err", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewBuffer(payload))
	if err != nil {
		f.log.Error("sink request build failed", "call_id", sub.CallID, "err", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn("sink delivery failed", "call_id", sub.CallID, "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.log.Warn("sink returned non-2xx", "call_id", sub.CallID, "status", resp.StatusCode)
		return false
	}

	f.log.Info("forwarded submission to sink", "call_id", sub.CallID)
	return true
}

func (f *Forwarder) flatten(sub intake.Submission) Row {
	info := sub.Info

	var notes []string
	for _, part := range []string{info.ReasonForCalling, info.DealSize, info.Urgency, info.AdditionalNotes} {
		if part != "" {
			notes = append(notes, part)
		}
	}

	return Row{
		Name:        info.CallerName,
		Role:        info.CallerRole,
		Inquiry:     info.InquirySummary,
		Market:      info.Location,
		Notes:       strings.Join(notes, " | "),
		Phone:       info.PhoneNumber,
		Email:       info.Email,
		AssetType:   info.AssetType,
		CallID:      sub.CallID,
		SubmittedAt: f.now().UTC().Format(time.RFC3339),
	}
}
