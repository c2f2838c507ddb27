package storage

import (
	"encoding/json"
	"fmt"

	"github.com/harborline/docflow/core"
)

// MarshalRecord serializes a DocumentRecord to bytes. The encoding is JSON
// so persisted run histories stay self-describing for diagnostics.
func MarshalRecord(record *core.DocumentRecord) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalRecord deserializes a DocumentRecord from bytes.
func UnmarshalRecord(data []byte) (*core.DocumentRecord, error) {
	var record core.DocumentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &record, nil
}
