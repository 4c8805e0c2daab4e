package core

import (
	"time"
)

// DataKind names a class of data a binding task is authorized to relay.
type DataKind string

const (
	DataKindLive   DataKind = "live"
	DataKindAlerts DataKind = "alerts"
)

// BindingTask is the durable definition of a recurring extraction-and-relay
// job derived from a data-sharing binding. A running timer captures the
// definition as it was at schedule time; later store updates only take effect
// once the current timer expires and reconciliation creates a new one.
type BindingTask struct {
	ID              string
	ProducerID      string
	BindingID       string
	AssetID         string
	ContractID      string
	Interval        int // seconds between firings, > 0
	Expiry          time.Time
	DataKinds       []DataKind
	AssetProperties []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Expired reports whether the task must no longer execute at the given instant.
func (t *BindingTask) Expired(now time.Time) bool {
	return !now.Before(t.Expiry)
}

// FiringStatus describes the outcome of a single timer firing.
type FiringStatus string

const (
	FiringStatusRelayed FiringStatus = "relayed"
	FiringStatusEmpty   FiringStatus = "empty"
	FiringStatusExpired FiringStatus = "expired"
	FiringStatusFailed  FiringStatus = "failed"
	FiringStatusSkipped FiringStatus = "skipped"
)

// Firing records one timer firing of a binding task. Informational only; no
// retry or replay is ever driven from these records.
type Firing struct {
	ID           string
	TaskID       string
	FiredAt      time.Time
	Status       FiringStatus
	RelayedCount int
	Error        *string
	CreatedAt    time.Time
}

// Contract is the slice of a platform contract a binding task is derived
// from. Read-only here; the platform backend owns it.
type Contract struct {
	ID              string     `json:"id"`
	AssetType       string     `json:"assetType"`
	Interval        int        `json:"interval"`
	Expiry          time.Time  `json:"contractValidTill"`
	DataKinds       []DataKind `json:"dataType"`
	AssetProperties []string   `json:"assetProperties"`
}

// Attribute is one NGSI-LD property of an asset snapshot. Unit and Segment
// are lifted from the nested sub-property metadata when present.
type Attribute struct {
	Type    string
	Value   any
	Unit    string
	Segment string
}

// Asset is the current attribute snapshot of an asset, keyed by full
// attribute URI.
type Asset struct {
	ID         string
	Type       string
	Attributes map[string]Attribute
}

// SeriesRow is one time-series observation as returned by the history store.
type SeriesRow struct {
	AttributeID string `json:"attributeId"`
	EntityID    string `json:"entityId"`
	ObservedAt  string `json:"observedAt"`
	Value       any    `json:"value"`
}

// Alert is one alert as held by the alert store for an asset.
type Alert struct {
	ID              string `json:"id"`
	Event           string `json:"event"`
	Resource        string `json:"resource"`
	Severity        string `json:"severity"`
	Text            string `json:"text"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	LastReceiveTime string `json:"lastReceiveTime"`
}

// ValueMetadata carries the snapshot-derived metadata attached to relayed
// values.
type ValueMetadata struct {
	Unit    string `json:"unit,omitempty"`
	Segment string `json:"segment,omitempty"`
}

// LiveValue is the data payload of a relayed time-series observation.
type LiveValue struct {
	Value    any            `json:"value"`
	Metadata *ValueMetadata `json:"metadata,omitempty"`
}

// AlertValue is the data payload of a relayed alert.
type AlertValue struct {
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Status    string         `json:"status"`
	AlertType string         `json:"alertType"`
	Metadata  *ValueMetadata `json:"metadata,omitempty"`
}

// ValueEntry is one normalized record handed to the relay. Data is either a
// LiveValue or an AlertValue depending on the data kind.
type ValueEntry struct {
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}
