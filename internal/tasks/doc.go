// Package tasks mirrors pages from a source wiki to translated target wikis with real-time progress reporting.
//
// # Core Operations
//
//  1. [Engine.Run] : full sync pass
//     - Enumerates every source page (or uses an explicit title list)
//     - Fetches each page's wikitext; a missing page syncs as empty content
//     - Syncs each page to every target and returns results in listing order
//
//  2. [Engine.SyncPage] : one page to every target
//     - Resolves the translated title through the target's slug map
//     - Reads the current target content, acquires a session and a write token
//     - Creates, overwrites, or skips when the normalized contents match
//
// # Failure Isolation
//
// Every (page, target) pair fails independently into a [TargetOutcome]. Only a failed enumeration or a cancelled
// context stops a run.
//
// # Concurrency
//
// Pages run on an errgroup pool bounded by [Options.Workers]. Targets of one page are processed sequentially.
// [SessionCache] keeps one session per target endpoint, serialises logins, and drops sessions the server
// rejects.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
//
// # Journal
//
// The optional [Journal] interface receives run start, every outcome and run finish
// (repositories.RunRepository). Journal errors are logged and ignored.
package tasks
