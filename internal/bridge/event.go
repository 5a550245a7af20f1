package bridge

import (
	"encoding/json"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/uncommitted"
)

// Event is one push message from the backend.
type Event struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Backend event names.
const (
	EventProposeChanges      = "propose-changes"
	EventChangeApplied       = "change-applied"
	EventChangeRejected      = "change-rejected"
	EventAllEditsApplied     = "all-edits-applied"
	EventFileChangesDetected = "file-changes-detected"
	EventFileContent         = "file-content"
	EventUncommittedChanges  = "uncommitted-changes"
	EventIntentAck           = "intent-ack"
)

// ChangeAppliedPayload confirms one proposal landed on disk.
type ChangeAppliedPayload struct {
	ChangeID string `json:"change_id"`
	FilePath string `json:"file_path"`
}

// ChangeRejectedPayload confirms one proposal was reverted.
type ChangeRejectedPayload struct {
	ChangeID string `json:"change_id"`
	FilePath string `json:"file_path"`
}

// AllEditsAppliedPayload summarizes a bulk apply.
type AllEditsAppliedPayload struct {
	Count     int      `json:"count"`
	FilePaths []string `json:"file_paths"`
}

// FileChangesDetectedPayload reports files modified on disk by a tool.
type FileChangesDetectedPayload struct {
	Paths []string `json:"paths"`
}

// FileContentPayload delivers file content for a prior read intent,
// keyed by path.
type FileContentPayload struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// UncommittedChangesPayload answers a ListUncommittedChanges intent.
type UncommittedChangesPayload struct {
	RequestID string               `json:"request_id"`
	Changes   []uncommitted.Change `json:"changes"`
}

// AckPayload acknowledges a dispatched intent. OK false carries the
// backend-reported failure in Error.
type AckPayload struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}
