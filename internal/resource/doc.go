// Package resource governs the budgets shared by writers and background work.
//
//   - Buffers: indexers reserve the bytes they hold between flushes; a refused
//     reservation makes an auto-flushing indexer commit at its next entry.
//   - Compaction slots: a run takes a slot for its whole duration.
//   - Compaction IO: passes wait on a token bucket sized in deleted bytes per
//     second so reclaiming space does not starve foreground commits.
//
// All methods are safe on a nil *Controller, which imposes no limits.
package resource
