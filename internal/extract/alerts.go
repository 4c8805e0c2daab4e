package extract

import (
	"strings"

	"bindrelay/internal/core"
)

// AlertExtractor builds value entries from an asset's alert list for the
// attributes a task is authorized to relay.
type AlertExtractor struct {
	AttributeBase string
}

// Extract selects, for every allowed attribute present in the snapshot, the
// alerts whose event field contains the attribute's full URI. The match is
// textual because the alert store keys events by free-form strings that embed
// the attribute URI. Attributes with no matching alerts are omitted.
func (e *AlertExtractor) Extract(asset *core.Asset, alerts []core.Alert, props []string) map[string][]core.ValueEntry {
	out := make(map[string][]core.ValueEntry)
	for _, name := range props {
		attr, uri, ok := propertyFor(asset, e.AttributeBase, name)
		if !ok {
			continue
		}
		meta := metadataFor(attr)
		var entries []core.ValueEntry
		for _, alert := range alerts {
			if !strings.Contains(alert.Event, uri) {
				continue
			}
			entries = append(entries, core.ValueEntry{
				Timestamp: alert.LastReceiveTime,
				Data: core.AlertValue{
					Severity:  alert.Severity,
					Message:   alert.Text,
					Status:    alert.Status,
					AlertType: alert.Type,
					Metadata:  meta,
				},
			})
		}
		if len(entries) == 0 {
			continue
		}
		out[name] = entries
	}
	return out
}
