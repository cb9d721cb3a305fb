package groups

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-json"
)

// OfficialMeta is the centrally maintained content of the meta group.
// Untouched meta groups are replaced with it whenever Ver changes.
type OfficialMeta struct {
	Ver   int      `json:"ver"`
	Cards []string `json:"cards"`
}

//go:embed official_meta.json
var officialMetaJSON []byte

// DefaultOfficialMeta returns the list compiled into the binary.
func DefaultOfficialMeta() OfficialMeta {
	meta, err := ParseOfficialMeta(officialMetaJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded official meta is invalid: %v", err))
	}
	return meta
}

// ParseOfficialMeta decodes an official meta payload.
func ParseOfficialMeta(data []byte) (OfficialMeta, error) {
	var meta OfficialMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return OfficialMeta{}, fmt.Errorf("parse official meta: %w", err)
	}
	if meta.Ver <= 0 {
		return OfficialMeta{}, fmt.Errorf("official meta version must be positive, got %d", meta.Ver)
	}
	return meta, nil
}
