package extract

import (
	"context"
	"fmt"

	"bindrelay/internal/core"
)

// SeriesQuerier reads time-series rows for one attribute of one entity inside
// a window, newest first.
type SeriesQuerier interface {
	QueryRange(ctx context.Context, token, entityID, attributeID string, win core.Window) ([]core.SeriesRow, error)
}

// LiveExtractor builds value entries from the time-series store for the
// attributes a task is authorized to relay.
type LiveExtractor struct {
	Series        SeriesQuerier
	AttributeBase string
}

// Extract queries the window of history for every allowed attribute present
// in the snapshot and maps the rows onto value entries. Attributes missing
// from the snapshot, or not Property-typed, are skipped silently; attributes
// with zero rows in the window are omitted from the result. Rows keep the
// store's order and are not deduplicated by timestamp. Unit and segment come
// from the snapshot entry, not from the rows.
func (e *LiveExtractor) Extract(ctx context.Context, token string, asset *core.Asset, props []string, win core.Window) (map[string][]core.ValueEntry, error) {
	out := make(map[string][]core.ValueEntry)
	for _, name := range props {
		attr, uri, ok := propertyFor(asset, e.AttributeBase, name)
		if !ok {
			continue
		}
		rows, err := e.Series.QueryRange(ctx, token, asset.ID, uri, win)
		if err != nil {
			return nil, fmt.Errorf("query series for %s: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}
		meta := metadataFor(attr)
		entries := make([]core.ValueEntry, 0, len(rows))
		for _, row := range rows {
			entries = append(entries, core.ValueEntry{
				Timestamp: row.ObservedAt,
				Data:      core.LiveValue{Value: row.Value, Metadata: meta},
			})
		}
		out[name] = entries
	}
	return out, nil
}
