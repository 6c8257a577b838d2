// Package service owns the index lifecycle for a workspace.
//
// # State machine
//
// An index moves through NoIndex, Checking, then either Loading and
// Verifying (cached snapshot present) or Building, to Ready. File
// changes toggle Ready and Updating. Degraded means the embedding
// provider is unreachable; Error means the workspace itself cannot be
// read. Rebuild restarts the cycle from any resting state.
//
// # Serialization
//
// All index mutation runs on one goroutine: the initial build, watcher
// batches, and rebuild requests are consumed from channels in turn.
// Queries read the store concurrently and never wait for a build.
//
// # Priority build
//
// Building indexes priority files first (progress 0-50), marks the
// index queryable, then finishes the rest of the workspace (50-100)
// and snapshots to disk.
package service
