// Package drip defines the domain types and collaborator interfaces for a
// streaming completion response controller.
//
// A completion provider produces text fragments. The controller in package
// stream buffers them, coalesces them on a fixed cadence and delivers the
// result to a Sink, while keeping a running token estimate and reconciling
// the terminal outcome of the exchange. Everything the controller talks to
// (Sink, Persistence, PolicyGate, TranscriptMirror, TokenCounter) is an
// interface declared here and implemented in its own subpackage.
package drip
