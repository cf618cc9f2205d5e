package export

import (
	"fmt"

	"github.com/pointtable/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMsgpack packs a generated table into the compact binary payload the
// frontend consumes. Roughly 60-80% smaller than the JSON rendering for
// typical point tables.
func EncodeMsgpack(t *models.GeneratedTable) ([]byte, error) {
	data, err := msgpack.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode table: %w", err)
	}
	return data, nil
}

// DecodeMsgpack unpacks a table payload produced by EncodeMsgpack.
func DecodeMsgpack(data []byte) (*models.GeneratedTable, error) {
	var t models.GeneratedTable
	if err := msgpack.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode table: %w", err)
	}
	return &t, nil
}
