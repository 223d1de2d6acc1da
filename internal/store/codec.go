package store

import (
	"encoding/json"
	"fmt"
)

func encode(s *Snapshot) ([]byte, error) {
	s.normalize()
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

func decode(b []byte) (*Snapshot, error) {
	snap := &Snapshot{}
	if len(b) == 0 {
		snap.normalize()
		return snap, nil
	}
	b, err := upgradeLegacy(b)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := json.Unmarshal(b, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.normalize()
	return snap, nil
}

// Older data files stored account ids as numbers and the bcrypt hash
// under "password".
var (
	legacyCollections = []string{"users", "attendees", "events", "tickets"}
	legacyIDFields    = []string{"id", "attendeeId"}
)

// upgradeLegacy rewrites numeric ids as strings and renames "password" to
// "passwordHash".  Documents already in the current shape are returned
// unchanged.
func upgradeLegacy(b []byte) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	changed := false
	for _, name := range legacyCollections {
		raw, ok := doc[name]
		if !ok || string(raw) == "null" {
			continue
		}
		var records []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		dirty := false
		for _, r := range records {
			for _, k := range legacyIDFields {
				if v, ok := r[k]; ok && isJSONNumber(v) {
					r[k], _ = json.Marshal(string(v))
					dirty = true
				}
			}
			if pw, ok := r["password"]; ok {
				if _, has := r["passwordHash"]; !has {
					r["passwordHash"] = pw
				}
				delete(r, "password")
				dirty = true
			}
		}
		if !dirty {
			continue
		}
		out, err := json.Marshal(records)
		if err != nil {
			return nil, err
		}
		doc[name] = out
		changed = true
	}
	if !changed {
		return b, nil
	}
	return json.Marshal(doc)
}

func isJSONNumber(v json.RawMessage) bool {
	if len(v) == 0 {
		return false
	}
	c := v[0]
	return c == '-' || (c >= '0' && c <= '9')
}
