package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Notifications is the accumulated backlog of undelivered notification
// markers: repository full name -> category -> item or run ids, earliest
// detected first.
type Notifications map[string]map[Category][]int64

// Clone returns a deep copy that can be mutated freely.
func (n Notifications) Clone() Notifications {
	out := make(Notifications, len(n))
	for repo, cats := range n {
		c := make(map[Category][]int64, len(cats))
		for cat, ids := range cats {
			c[cat] = append([]int64(nil), ids...)
		}
		out[repo] = c
	}
	return out
}

// DecodeNotifications parses a persisted notification store. Values that
// are not a list of integer ids are skipped rather than failing the whole
// decode; the number of skipped values is returned alongside the result.
func DecodeNotifications(data []byte) (Notifications, int, error) {
	out := make(Notifications)
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out, 0, nil
	}

	var repos map[string]json.RawMessage
	if err := json.Unmarshal(data, &repos); err != nil {
		return nil, 0, fmt.Errorf("decoding notifications: %w", err)
	}

	skipped := 0
	for repo, rawCats := range repos {
		var cats map[string]json.RawMessage
		if err := json.Unmarshal(rawCats, &cats); err != nil {
			skipped++
			continue
		}

		for name, rawIDs := range cats {
			var ids []int64
			if err := json.Unmarshal(rawIDs, &ids); err != nil || ids == nil {
				skipped++
				continue
			}
			if len(ids) == 0 {
				continue
			}
			if out[repo] == nil {
				out[repo] = make(map[Category][]int64)
			}
			out[repo][Category(name)] = ids
		}
	}

	return out, skipped, nil
}
