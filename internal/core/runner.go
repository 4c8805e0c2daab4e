package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bindrelay/internal/metrics"
)

// AssetService reads the current attribute snapshot of an asset.
type AssetService interface {
	GetAssetByID(ctx context.Context, assetID, token string) (*Asset, error)
}

// AlertFinder reads the alert list of an asset.
type AlertFinder interface {
	FindForAsset(ctx context.Context, assetID string) ([]Alert, error)
}

// TokenSource yields the bearer token used against the platform services.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// LiveSource extracts windowed time-series values for the allowed attributes.
type LiveSource interface {
	Extract(ctx context.Context, token string, asset *Asset, props []string, win Window) (map[string][]ValueEntry, error)
}

// AlertSource extracts alert values for the allowed attributes.
type AlertSource interface {
	Extract(asset *Asset, alerts []Alert, props []string) map[string][]ValueEntry
}

// Publisher forwards one attribute's values downstream.
type Publisher interface {
	PublishValues(ctx context.Context, task *BindingTask, assetType string, kind DataKind, attribute string, values []ValueEntry) error
}

// Runner executes one firing of a binding task: extract the task's data
// kinds, then relay each non-empty attribute. Failures are contained at the
// smallest useful scope; nothing a runner does can affect another task or
// cancel the timer that fired it.
type Runner struct {
	assets      AssetService
	alertStore  AlertFinder
	tokens      TokenSource
	live        LiveSource
	alertValues AlertSource
	publisher   Publisher
	logger      *slog.Logger

	now func() time.Time
}

// NewRunner wires a task runner.
func NewRunner(assets AssetService, alertStore AlertFinder, tokens TokenSource, live LiveSource, alertValues AlertSource, publisher Publisher, logger *slog.Logger) *Runner {
	return &Runner{
		assets:      assets,
		alertStore:  alertStore,
		tokens:      tokens,
		live:        live,
		alertValues: alertValues,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// RunOnce performs one firing for the task. Data kinds are processed in the
// order the task lists them; a kind that fails is logged and does not stop
// the remaining kinds. Returns the number of relayed attribute payloads and
// the first extraction error, if any.
func (r *Runner) RunOnce(ctx context.Context, task *BindingTask) (int, error) {
	relayed := 0
	var firstErr error
	for _, kind := range task.DataKinds {
		var sent int
		var err error
		switch kind {
		case DataKindLive:
			sent, err = r.runLive(ctx, task)
		case DataKindAlerts:
			sent, err = r.runAlerts(ctx, task)
		default:
			r.logger.Debug("skipping unknown data kind", "task_id", task.ID, "kind", kind)
			continue
		}
		if err != nil {
			metrics.ExtractErrors.WithLabelValues(string(kind)).Inc()
			r.logger.Error("data kind failed", "task_id", task.ID, "kind", kind, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		relayed += sent
	}
	return relayed, firstErr
}

func (r *Runner) runLive(ctx context.Context, task *BindingTask) (int, error) {
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve token: %w", err)
	}
	asset, err := r.assets.GetAssetByID(ctx, task.AssetID, token)
	if err != nil {
		return 0, fmt.Errorf("fetch asset snapshot: %w", err)
	}
	win := WindowEnding(r.now(), task.Interval)
	values, err := r.live.Extract(ctx, token, asset, task.AssetProperties, win)
	if err != nil {
		return 0, err
	}
	return r.publish(ctx, task, asset.Type, DataKindLive, values), nil
}

func (r *Runner) runAlerts(ctx context.Context, task *BindingTask) (int, error) {
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve token: %w", err)
	}
	asset, err := r.assets.GetAssetByID(ctx, task.AssetID, token)
	if err != nil {
		return 0, fmt.Errorf("fetch asset snapshot: %w", err)
	}
	alerts, err := r.alertStore.FindForAsset(ctx, task.AssetID)
	if err != nil {
		return 0, fmt.Errorf("fetch alerts: %w", err)
	}
	values := r.alertValues.Extract(asset, alerts, task.AssetProperties)
	return r.publish(ctx, task, asset.Type, DataKindAlerts, values), nil
}

// publish relays each non-empty attribute sequentially in the order the task
// authorizes them. A failed relay is logged with the attribute name and does
// not prevent the remaining attributes; the data for that cycle is lost.
func (r *Runner) publish(ctx context.Context, task *BindingTask, assetType string, kind DataKind, values map[string][]ValueEntry) int {
	sent := 0
	for _, name := range task.AssetProperties {
		entries, ok := values[name]
		if !ok {
			continue
		}
		if err := r.publisher.PublishValues(ctx, task, assetType, kind, name, entries); err != nil {
			metrics.RelayCalls.WithLabelValues("error").Inc()
			r.logger.Error("relay failed", "task_id", task.ID, "kind", kind, "attribute", name, "err", err)
			continue
		}
		metrics.RelayCalls.WithLabelValues("ok").Inc()
		sent++
	}
	return sent
}
