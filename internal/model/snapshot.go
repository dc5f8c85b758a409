package model

// Snapshot is the full item list of a group as of a collection revision.
// Revisions of one group only grow; zero means unknown.
type Snapshot struct {
	Revision uint64
	Items    []Item
}
