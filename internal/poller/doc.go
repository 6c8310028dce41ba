// Package poller fetches a build's status on a fixed interval.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with per-request timeouts, pooled
//     connections and a response size limit
//   - [Scheduler]: ticks at a fixed interval, resolves the current [Target]
//     and emits one [Result] per completed request
//   - [OverlapPolicy]: what a tick does while an earlier request is still
//     in flight
//
// Users of the buildwatch library should not need this package directly;
// it is driven by buildwatch.Watcher.
package poller
