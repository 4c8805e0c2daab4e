package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bindrelay/internal/core"
)

func TestSeriesQueryRangeBuildsPostgRESTQuery(t *testing.T) {
	var gotQuery map[string][]string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/entityhistory", r.URL.Path)
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"attributeId":"https://industry-fusion.org/base/v0.1/temperature","entityId":"urn:ngsi-ld:plasmacutter:1","observedAt":"2025-03-10T11:59:50-00:00","value":"22.0"},
			{"attributeId":"https://industry-fusion.org/base/v0.1/temperature","entityId":"urn:ngsi-ld:plasmacutter:1","observedAt":"2025-03-10T11:59:20-00:00","value":"21.5"}
		]`))
	}))
	defer srv.Close()

	c, err := NewSeriesClient(srv.URL)
	require.NoError(t, err)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	win := core.WindowEnding(now, 60)
	rows, err := c.QueryRange(context.Background(), "tok",
		"urn:ngsi-ld:plasmacutter:1", "https://industry-fusion.org/base/v0.1/temperature", win)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, []string{"eq.urn:ngsi-ld:plasmacutter:1"}, gotQuery["entityId"])
	assert.Equal(t, []string{"eq.https://industry-fusion.org/base/v0.1/temperature"}, gotQuery["attributeId"])
	assert.Equal(t, []string{"gte.2025-03-10T11:59:00-00:00", "lt.2025-03-10T12:00:00-00:00"}, gotQuery["observedAt"])
	assert.Equal(t, []string{"observedAt.desc"}, gotQuery["order"])

	require.Len(t, rows, 2)
	assert.Equal(t, "2025-03-10T11:59:50-00:00", rows[0].ObservedAt)
	assert.Equal(t, "22.0", rows[0].Value)
}

func TestSeriesQueryRangeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewSeriesClient(srv.URL)
	require.NoError(t, err)

	_, err = c.QueryRange(context.Background(), "tok", "e", "a", core.Window{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestGetAssetByIDParsesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/urn:ngsi-ld:plasmacutter:1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/ld+json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/ld+json")
		w.Write([]byte(`{
			"id": "urn:ngsi-ld:plasmacutter:1",
			"type": "plasmacutter",
			"@context": ["https://uri.etsi.org/ngsi-ld/v1/ngsi-ld-core-context.jsonld"],
			"https://industry-fusion.org/base/v0.1/temperature": {
				"type": "Property",
				"value": "21.5",
				"https://industry-fusion.org/base/v0.1/unit": {"type": "Property", "value": "celsius"},
				"https://industry-fusion.org/base/v0.1/segment": "head"
			},
			"https://industry-fusion.org/base/v0.1/location": {
				"type": "Relationship",
				"value": "urn:ngsi-ld:site:1"
			}
		}`))
	}))
	defer srv.Close()

	c, err := NewAssetClient(srv.URL)
	require.NoError(t, err)

	asset, err := c.GetAssetByID(context.Background(), "urn:ngsi-ld:plasmacutter:1", "tok")
	require.NoError(t, err)

	assert.Equal(t, "urn:ngsi-ld:plasmacutter:1", asset.ID)
	assert.Equal(t, "plasmacutter", asset.Type)
	require.Len(t, asset.Attributes, 2)

	temp := asset.Attributes["https://industry-fusion.org/base/v0.1/temperature"]
	assert.Equal(t, "Property", temp.Type)
	assert.Equal(t, "21.5", temp.Value)
	assert.Equal(t, "celsius", temp.Unit)
	assert.Equal(t, "head", temp.Segment)

	loc := asset.Attributes["https://industry-fusion.org/base/v0.1/location"]
	assert.Equal(t, "Relationship", loc.Type)
}

func TestFindForAssetDecodesAlertEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alerts", r.URL.Path)
		assert.Equal(t, "urn:ngsi-ld:plasmacutter:1", r.URL.Query().Get("resource"))
		assert.Equal(t, "Key secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/ld+json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"alerts":[
			{"id":"a1","event":"https://industry-fusion.org/base/v0.1/temperature-high",
			 "resource":"urn:ngsi-ld:plasmacutter:1","severity":"critical",
			 "text":"temperature above threshold","type":"machineAlert","status":"open",
			 "lastReceiveTime":"2025-03-10T11:59:00.000Z"}
		],"total":1}`))
	}))
	defer srv.Close()

	c, err := NewAlertClient(srv.URL, "secret")
	require.NoError(t, err)

	alerts, err := c.FindForAsset(context.Background(), "urn:ngsi-ld:plasmacutter:1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "critical", alerts[0].Severity)
	assert.Equal(t, "temperature above threshold", alerts[0].Text)
	assert.Equal(t, "2025-03-10T11:59:00.000Z", alerts[0].LastReceiveTime)
}

func TestGetContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contract/contract-1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "contract-1",
			"assetType": "plasmacutter",
			"interval": 60,
			"contractValidTill": "2026-01-01T00:00:00Z",
			"dataType": ["live", "alerts"],
			"assetProperties": ["temperature", "pressure"]
		}`))
	}))
	defer srv.Close()

	c, err := NewContractClient(srv.URL)
	require.NoError(t, err)

	contract, err := c.GetContract(context.Background(), "contract-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "contract-1", contract.ID)
	assert.Equal(t, 60, contract.Interval)
	assert.Equal(t, []core.DataKind{core.DataKindLive, core.DataKindAlerts}, contract.DataKinds)
	assert.Equal(t, []string{"temperature", "pressure"}, contract.AssetProperties)
	assert.True(t, contract.Expiry.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestStaticTokenSource(t *testing.T) {
	token, err := StaticTokenSource("fixed").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed", token)
}
