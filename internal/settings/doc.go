// Package settings holds the overlay's two persistence targets.
//
// Tree is the bookkeeping tree: nested groups of small typed values,
// stored as TOML. The plugin host keeps one group per kind ("windows",
// "widgets") with one sub-group per save name.
//
// SnapshotStore is a flat map of opaque per-instance snapshots keyed by
// save name. Two backends exist: JSONSnapshots, a single JSON document,
// and SQLiteSnapshots, one row per save name.
package settings
