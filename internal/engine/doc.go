// Package engine implements the category traversal engine: breadth-first
// page walks per category entry point, the index-gated article pipeline
// (claim, fetch, extract, persist, index), and the periodic state
// checkpoints that make interrupted runs resumable.
package engine
