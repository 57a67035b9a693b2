// Package bus exposes the engine over the host's request/response message
// bus. The host (popup UI, background page, content scripts) sends typed
// JSON messages; the dispatcher routes them to the gate, license and trial
// services and answers with a uniform success/error envelope.
//
// The dispatcher never returns a Go error to the transport: every outcome,
// including unknown message types and malformed payloads, is reported in
// the Response envelope so the host can branch on it.
//
// Example:
//
//	d := bus.NewDispatcher(g, licenseSvc, lifecycle)
//	resp := d.Dispatch(ctx, bus.Request{
//		Type:    bus.TypeActivateLicense,
//		Payload: json.RawMessage(`{"licenseKey":"KEY-123"}`),
//	})
package bus
