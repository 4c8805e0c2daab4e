package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bindrelay/internal/core"
)

func TestAlertExtractMatchesEventByAttributeURI(t *testing.T) {
	uri := DefaultAttributeBase + "temperature"
	alerts := []core.Alert{
		{
			ID:              "a1",
			Event:           uri + "-high",
			Severity:        "critical",
			Text:            "temperature above threshold",
			Type:            "machineAlert",
			Status:          "open",
			LastReceiveTime: "2025-03-10T11:59:00.000Z",
		},
		{
			ID:       "a2",
			Event:    DefaultAttributeBase + "voltage-low",
			Severity: "warning",
		},
	}
	e := &AlertExtractor{}

	out := e.Extract(snapshotAsset(), alerts, []string{"temperature"})
	require.Contains(t, out, "temperature")
	entries := out["temperature"]
	require.Len(t, entries, 1, "alerts for other attributes must not leak in")

	assert.Equal(t, "2025-03-10T11:59:00.000Z", entries[0].Timestamp)
	data, ok := entries[0].Data.(core.AlertValue)
	require.True(t, ok)
	assert.Equal(t, "critical", data.Severity)
	assert.Equal(t, "temperature above threshold", data.Message)
	assert.Equal(t, "open", data.Status)
	assert.Equal(t, "machineAlert", data.AlertType)
	require.NotNil(t, data.Metadata)
	assert.Equal(t, "celsius", data.Metadata.Unit)
}

func TestAlertExtractOmitsAttributesWithoutAlerts(t *testing.T) {
	alerts := []core.Alert{
		{Event: DefaultAttributeBase + "temperature-high", LastReceiveTime: "t"},
	}
	e := &AlertExtractor{}

	out := e.Extract(snapshotAsset(), alerts, []string{"temperature", "pressure"})
	assert.Contains(t, out, "temperature")
	assert.NotContains(t, out, "pressure")
}

func TestAlertExtractSkipsAttributesMissingFromSnapshot(t *testing.T) {
	alerts := []core.Alert{
		{Event: DefaultAttributeBase + "voltage-low", LastReceiveTime: "t"},
	}
	e := &AlertExtractor{}

	out := e.Extract(snapshotAsset(), alerts, []string{"voltage"})
	assert.Empty(t, out)
}

func TestAlertExtractEmptyAlertList(t *testing.T) {
	e := &AlertExtractor{}

	out := e.Extract(snapshotAsset(), nil, []string{"temperature"})
	assert.Empty(t, out)
}
