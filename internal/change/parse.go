package change

import (
	"encoding/json"
	"fmt"
)

// ParseBatch decodes a propose-changes payload. Entries with an unknown
// or malformed variant are skipped rather than failing the batch; the
// event contract requires tolerating shapes this build does not know.
func ParseBatch(payload []byte) ([]Change, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode propose-changes payload: %w", err)
	}

	changes := make([]Change, 0, len(raw))
	for _, entry := range raw {
		var c Change
		if err := json.Unmarshal(entry, &c); err != nil {
			continue
		}
		if !c.Renderable() {
			continue
		}
		changes = append(changes, c)
	}
	return changes, nil
}
