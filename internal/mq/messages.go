package mq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/septivank/attendance-sync-worker/internal/event"
)

// SyncRequest asks a serving worker to run one sync. Days and UnreadOnly
// fall back to the worker's configuration when omitted.
type SyncRequest struct {
	RequestID  string `json:"request_id"`
	Days       int    `json:"days,omitempty"`
	UnreadOnly *bool  `json:"unread_only,omitempty"`
}

// DecodeSyncRequest parses a trigger message body.
func DecodeSyncRequest(body []byte) (SyncRequest, error) {
	var req SyncRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return SyncRequest{}, fmt.Errorf("failed to unmarshal sync request: %w", err)
	}
	if req.Days < 0 {
		return SyncRequest{}, fmt.Errorf("sync request days must not be negative, got %d", req.Days)
	}
	return req, nil
}

// BatchUploaded is published after the ERP accepts a batch.
type BatchUploaded struct {
	RunID      string         `json:"run_id"`
	UploadedAt time.Time      `json:"uploaded_at"`
	WindowDays int            `json:"window_days"`
	Events     []event.Event  `json:"events"`
	Response   map[string]any `json:"response"`
}
