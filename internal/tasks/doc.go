// Package tasks runs long-running history operations with real-time progress reporting.
//
// # Archive
//
// [Archiver.Archive] exports stored transcriptions to a directory:
//
//  1. Fetches the history list (or the selected IDs) from the backend
//  2. Fans items out to a bounded worker pool
//  3. Each worker renders the item with [formatter.Export] and optionally downloads its audio
//  4. Writes archive_manifest.json summarizing successes and failures
//
// Audio downloads pass a rate limiter so large archives do not flood the backend.
// One failed item never aborts the others.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, a message, and optional data.
// Updates use select with default so reporting never blocks the workers.
package tasks
