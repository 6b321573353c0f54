// Package audit defines the structured audit event model and the sink
// implementations the engine dispatches into. The root package re-exports
// the public pieces; this package keeps the model free of engine imports.
package audit
