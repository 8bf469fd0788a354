package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

// unmarshalLocation decodes a jsonb location column into loc. An empty
// column leaves loc as its zero value.
func unmarshalLocation(b []byte, loc *domain.Location) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, loc)
}

// idOrNil renders id as its hex string, or "" for the nil ObjectID so the
// column can stay nullable-by-convention without a pointer everywhere.
func idOrNil(id domain.ObjectID) any {
	if id.IsZero() {
		return nil
	}
	return id.String()
}

// scanID parses a nullable text column back into an ObjectID, leaving the
// zero value for a NULL/empty column.
func scanID(s *string) (domain.ObjectID, error) {
	if s == nil || *s == "" {
		return domain.NilObjectID, nil
	}
	id, err := domain.ParseObjectID(*s)
	if err != nil {
		return domain.NilObjectID, fmt.Errorf("op=postgres.scan_id: %w", err)
	}
	return id, nil
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func unmarshalJSONMap(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("op=postgres.unmarshal_json_map: %w", err)
	}
	return m, nil
}
