package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jpalmerr/daystatus"
)

// SeedLegacyDocument writes a document in the older, looser layout under the
// legacy key: aliased statuses, a course list instead of a map and epoch
// millisecond timestamps. The stores migrate it on Init.
func SeedLegacyDocument(ctx context.Context, sub daystatus.Substrate, now time.Time) error {
	yesterday := now.AddDate(0, 0, -1)
	doc := map[string]any{
		yesterday.Format(daystatus.DateLayout): map[string]any{
			"status":  "hall",
			"message": "Pitch is frozen",
			"courses": []map[string]any{
				{"id": "kids", "status": "closed"},
				{"id": "adults", "status": "ok"},
			},
			"updatedAt": yesterday.UnixMilli(),
		},
		"not-a-date": map[string]any{"status": "ok"},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return sub.Set(ctx, daystatus.DefaultLegacyKey, string(data))
}
