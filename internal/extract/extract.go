// Package extract maps raw time-series rows and alert records onto the
// normalized value entries handed to the relay. Extraction is keyed by the
// short attribute names a binding task is authorized for; attributes with no
// matching data are omitted from the result rather than emitted empty, which
// is the contract the task runner relies on to decide whether to relay.
package extract

import (
	"strings"

	"bindrelay/internal/core"
)

// DefaultAttributeBase is the URI prefix under which the platform publishes
// asset attributes.
const DefaultAttributeBase = "https://industry-fusion.org/base/v0.1/"

// AttributeURI builds the full attribute URI for a short name.
func AttributeURI(base, name string) string {
	if base == "" {
		base = DefaultAttributeBase
	}
	if !strings.HasSuffix(base, "/") && !strings.HasSuffix(base, "#") {
		base += "/"
	}
	return base + name
}

// propertyFor returns the snapshot entry for a short name if the snapshot has
// a Property-typed attribute under its full URI.
func propertyFor(asset *core.Asset, base, name string) (core.Attribute, string, bool) {
	uri := AttributeURI(base, name)
	attr, ok := asset.Attributes[uri]
	if !ok || attr.Type != "Property" {
		return core.Attribute{}, uri, false
	}
	return attr, uri, true
}

// metadataFor returns the unit/segment metadata of a snapshot entry, or nil
// when the entry carries neither.
func metadataFor(attr core.Attribute) *core.ValueMetadata {
	if attr.Unit == "" && attr.Segment == "" {
		return nil
	}
	return &core.ValueMetadata{Unit: attr.Unit, Segment: attr.Segment}
}
