package validation

import (
	"fmt"

	"github.com/danmuck/eftview/internal/protocol"
	"github.com/danmuck/eftview/internal/record"
)

// DemographicPresence passes when the keyed demographic is non-empty. The
// check is named "demographics.<key>".
func DemographicPresence(key string) Check {
	return Check{
		Name: "demographics." + key,
		Evaluate: func(tx *record.Transaction) (bool, string) {
			v, known := tx.Demographics().Value(key)
			if !known {
				return false, fmt.Sprintf("unknown demographic %q", key)
			}
			if v != "" {
				return true, ""
			}
			if n, ok := record.DemographicFields[key]; ok {
				tag := protocol.Tag{RecordType: protocol.TypeDescriptive, Field: n}
				return false, fmt.Sprintf("missing %s (%s)", key, tag)
			}
			return false, fmt.Sprintf("missing %s", key)
		},
	}
}
