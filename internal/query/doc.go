// Package query answers context requests with graceful degradation.
//
// Three tiers, tried in order: semantic search over the vector index
// (quality 1.0), keyword grep over workspace files (0.6), and a plain
// file-name listing (0.3). A lower tier never errors because a higher
// one was unavailable; callers always get an answer annotated with the
// tier that produced it.
package query
