package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bindrelay/internal/core"
)

type fakeSeries struct {
	rows    map[string][]core.SeriesRow // by attribute URI
	err     error
	queried []string
}

func (f *fakeSeries) QueryRange(_ context.Context, _, _, attributeID string, _ core.Window) ([]core.SeriesRow, error) {
	f.queried = append(f.queried, attributeID)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[attributeID], nil
}

func snapshotAsset() *core.Asset {
	return &core.Asset{
		ID:   "urn:ngsi-ld:plasmacutter:1",
		Type: "plasmacutter",
		Attributes: map[string]core.Attribute{
			DefaultAttributeBase + "temperature": {Type: "Property", Value: "21.5", Unit: "celsius"},
			DefaultAttributeBase + "pressure":    {Type: "Property", Value: "3.1"},
			DefaultAttributeBase + "location":    {Type: "Relationship", Value: "urn:ngsi-ld:site:1"},
		},
	}
}

func testWindow() core.Window {
	return core.WindowEnding(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), 60)
}

func TestAttributeURI(t *testing.T) {
	assert.Equal(t, DefaultAttributeBase+"temperature", AttributeURI("", "temperature"))
	assert.Equal(t, "https://example.org/v1/temperature", AttributeURI("https://example.org/v1", "temperature"))
	assert.Equal(t, "https://example.org/v1/temperature", AttributeURI("https://example.org/v1/", "temperature"))
	assert.Equal(t, "https://example.org/ns#temperature", AttributeURI("https://example.org/ns#", "temperature"))
}

func TestLiveExtractMapsRowsInStoreOrder(t *testing.T) {
	uri := DefaultAttributeBase + "temperature"
	series := &fakeSeries{rows: map[string][]core.SeriesRow{
		uri: {
			{AttributeID: uri, ObservedAt: "2025-03-10T11:59:50-00:00", Value: "22.0"},
			{AttributeID: uri, ObservedAt: "2025-03-10T11:59:20-00:00", Value: "21.5"},
		},
	}}
	e := &LiveExtractor{Series: series}

	out, err := e.Extract(context.Background(), "tok", snapshotAsset(), []string{"temperature"}, testWindow())
	require.NoError(t, err)
	require.Contains(t, out, "temperature")
	entries := out["temperature"]
	require.Len(t, entries, 2)
	assert.Equal(t, "2025-03-10T11:59:50-00:00", entries[0].Timestamp)
	assert.Equal(t, "2025-03-10T11:59:20-00:00", entries[1].Timestamp)

	data, ok := entries[0].Data.(core.LiveValue)
	require.True(t, ok)
	assert.Equal(t, "22.0", data.Value)
	require.NotNil(t, data.Metadata)
	assert.Equal(t, "celsius", data.Metadata.Unit)
}

func TestLiveExtractOmitsEmptyAttributes(t *testing.T) {
	uri := DefaultAttributeBase + "temperature"
	series := &fakeSeries{rows: map[string][]core.SeriesRow{
		uri: {{AttributeID: uri, ObservedAt: "2025-03-10T11:59:50-00:00", Value: "22.0"}},
	}}
	e := &LiveExtractor{Series: series}

	out, err := e.Extract(context.Background(), "tok", snapshotAsset(), []string{"temperature", "pressure"}, testWindow())
	require.NoError(t, err)
	assert.Contains(t, out, "temperature")
	assert.NotContains(t, out, "pressure", "attributes with zero rows must be absent, not empty")
}

func TestLiveExtractSkipsAttributesMissingFromSnapshot(t *testing.T) {
	series := &fakeSeries{}
	e := &LiveExtractor{Series: series}

	out, err := e.Extract(context.Background(), "tok", snapshotAsset(), []string{"voltage"}, testWindow())
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, series.queried, "missing attributes must not hit the store")
}

func TestLiveExtractSkipsNonPropertyAttributes(t *testing.T) {
	series := &fakeSeries{}
	e := &LiveExtractor{Series: series}

	out, err := e.Extract(context.Background(), "tok", snapshotAsset(), []string{"location"}, testWindow())
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, series.queried)
}

func TestLiveExtractQueryFailureAbortsKind(t *testing.T) {
	series := &fakeSeries{err: errors.New("timescale down")}
	e := &LiveExtractor{Series: series}

	out, err := e.Extract(context.Background(), "tok", snapshotAsset(), []string{"temperature", "pressure"}, testWindow())
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "temperature")
}

func TestLiveExtractNoMetadataWhenSnapshotHasNone(t *testing.T) {
	uri := DefaultAttributeBase + "pressure"
	series := &fakeSeries{rows: map[string][]core.SeriesRow{
		uri: {{AttributeID: uri, ObservedAt: "2025-03-10T11:59:50-00:00", Value: "3.0"}},
	}}
	e := &LiveExtractor{Series: series}

	out, err := e.Extract(context.Background(), "tok", snapshotAsset(), []string{"pressure"}, testWindow())
	require.NoError(t, err)
	data := out["pressure"][0].Data.(core.LiveValue)
	assert.Nil(t, data.Metadata)
}
