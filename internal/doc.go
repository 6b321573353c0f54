// Package internal holds small helpers shared by the engine and its flow
// layer: identifier and backup-code generation, code hashing, and the
// User-Agent device-label heuristic.
package internal
