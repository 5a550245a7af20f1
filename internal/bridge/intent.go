// Package bridge is the frontend's side of the asynchronous intent/event
// channel to the native backend. Intents are fire-and-await-ack; events
// are push, unordered across files, ordered within one id/path. The wire
// contract is externally defined; unknown event shapes are ignored, never
// fatal.
package bridge

import "encoding/json"

// IntentType names a typed intent dispatched to the backend.
type IntentType string

const (
	IntentApproveChange     IntentType = "ApproveChange"
	IntentRejectChange      IntentType = "RejectChange"
	IntentApproveChangeHunk IntentType = "ApproveChangeHunk"
	IntentRejectChangeHunk  IntentType = "RejectChangeHunk"
	IntentApproveAllChanges IntentType = "ApproveAllChanges"

	IntentAcceptFileChanges IntentType = "AcceptFileChanges"
	IntentRejectFileChanges IntentType = "RejectFileChanges"
	IntentAcceptAllChanges  IntentType = "AcceptAllChanges"
	IntentRejectAllChanges  IntentType = "RejectAllChanges"
	IntentListUncommitted   IntentType = "ListUncommittedChanges"

	IntentReadFile       IntentType = "ReadFile"
	IntentWriteFile      IntentType = "WriteFile"
	IntentContentChanged IntentType = "ContentChanged"
)

// Intent is one dispatched message. RequestID correlates the eventual
// acknowledgement event.
type Intent struct {
	Type      IntentType      `json:"type"`
	RequestID string          `json:"request_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ChangePayload addresses a whole proposal.
type ChangePayload struct {
	ChangeID string `json:"change_id"`
}

// HunkPayload addresses one hunk of a multi-hunk proposal.
type HunkPayload struct {
	ChangeID  string `json:"change_id"`
	HunkIndex int    `json:"hunk_index"`
}

// FilePayload addresses a file by path.
type FilePayload struct {
	FilePath string `json:"file_path"`
}

// WritePayload carries file content to the backend.
type WritePayload struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}
