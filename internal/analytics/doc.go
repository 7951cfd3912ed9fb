// Package analytics holds the read-side computations over committed streak,
// ledger and check-in state: discipline score, relapse risk, survival curve,
// recovery phase, energy forecast, productivity index, energy history and
// trigger analysis.
//
// Every function here is pure. Callers load inputs from storage and pass
// them in; nothing in this package touches the database or the clock, so
// results are safe to compute in parallel and to cache.
package analytics
