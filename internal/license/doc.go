// Package license implements the license validation and entitlement engine.
//
// The Manager is the orchestrator: it loads the cached license record at
// startup, validates it online, degrades through the offline grace evaluator
// when the backend is unreachable, and keeps the decision fresh with a
// background revalidation scheduler. The current entitlement lives in a
// single immutable Status snapshot behind an atomic pointer, so feature
// checks are lock-free, non-blocking reads.
//
// Collaborators (persistent store, validation transport, update service,
// feature registry) are consumed through interfaces declared here and
// injected at construction.
package license
