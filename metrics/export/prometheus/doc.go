// Package prometheus provides Prometheus collectors for shipauth metrics.
//
// [NewPrometheusExporter] accepts a [shipauth.Engine] and exposes an
// [http.Handler] that renders all shipauth counters in Prometheus text
// exposition format. Counter names are prefixed shipauth_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
