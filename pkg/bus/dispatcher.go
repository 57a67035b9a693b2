package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gatekit/pkg/gate"
	"github.com/dmitrymomot/gatekit/pkg/license"
	"github.com/dmitrymomot/gatekit/pkg/trial"
)

// Dispatcher routes bus requests to the engine services.
type Dispatcher struct {
	gate      *gate.Gate
	license   *license.Service
	lifecycle *trial.Lifecycle
	log       *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// NewDispatcher creates a dispatcher over the three services. Panics if
// any service is nil to fail fast during wiring.
func NewDispatcher(g *gate.Gate, lic *license.Service, lc *trial.Lifecycle, opts ...DispatcherOption) *Dispatcher {
	if g == nil {
		panic("bus: gate.Gate is required")
	}
	if lic == nil {
		panic("bus: license.Service is required")
	}
	if lc == nil {
		panic("bus: trial.Lifecycle is required")
	}

	d := &Dispatcher{
		gate:      g,
		license:   lic,
		lifecycle: lc,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles one request and always produces a response envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	switch req.Type {
	case TypeActivateLicense:
		var payload ActivateLicensePayload
		if err := unmarshalPayload(req.Payload, &payload); err != nil {
			return fail(id, err)
		}
		snap, err := d.license.Activate(ctx, payload.LicenseKey)
		if err != nil {
			return fail(id, err)
		}
		return ok(id, snap)

	case TypeDeactivateLicense:
		if err := d.license.Deactivate(ctx); err != nil {
			return fail(id, err)
		}
		return ok(id, nil)

	case TypeGetLicenseStatus:
		return ok(id, d.license.Check(ctx))

	case TypeCheckFeature:
		var payload FeaturePayload
		if err := unmarshalPayload(req.Payload, &payload); err != nil {
			return fail(id, err)
		}
		return ok(id, d.gate.Evaluate(ctx, payload.FeatureID))

	case TypeRecordUsage:
		var payload FeaturePayload
		if err := unmarshalPayload(req.Payload, &payload); err != nil {
			return fail(id, err)
		}
		return ok(id, d.gate.Consume(ctx, payload.FeatureID))

	case TypeStartTrial:
		return ok(id, d.lifecycle.Start(ctx))

	case TypeGetTrialStatus:
		rec, state := d.lifecycle.Status(ctx)
		data := TrialStatusData{
			State:         string(state),
			DaysRemaining: d.lifecycle.DaysRemaining(ctx),
		}
		if state != trial.StateNotStarted {
			data.StartedAt = rec.StartedAt.Format(time.RFC3339)
			data.ExpiresAt = rec.ExpiresAt.Format(time.RFC3339)
		}
		return ok(id, data)

	case TypeMarkTrialPaid:
		if err := d.lifecycle.MarkConverted(ctx); err != nil {
			return fail(id, err)
		}
		return ok(id, nil)

	default:
		return fail(id, fmt.Errorf("unknown message type: %s", req.Type))
	}
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func ok(id string, data any) Response {
	resp := Response{ID: id, Success: true}
	if data == nil {
		return resp
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fail(id, fmt.Errorf("marshal response data: %w", err))
	}
	resp.Data = raw
	return resp
}

func fail(id string, err error) Response {
	return Response{ID: id, Success: false, Error: err.Error()}
}
