package runstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/pointtable/backend/internal/models"
)

// InputHash fingerprints an equipment sequence for memoization. Item order
// is significant, matching the calculator's ordering semantics. JSON
// marshaling sorts map keys, so the encoding is canonical.
func InputHash(items []models.EquipmentItem) (string, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint input: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
