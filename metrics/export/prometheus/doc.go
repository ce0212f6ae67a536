// Package prometheus renders goSession metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts a [goSession.Manager] and exposes an
// [http.Handler]. Counter names are prefixed gosession_ and end in _total;
// latency histograms end in _seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate manager state.
package prometheus
