// Package backend is the document and blob platform behind the inventory
// engine. Collection stores group-scoped item documents in SQLite and pushes
// a full snapshot of a group to every watcher after each committed write.
// Blobs stores uploaded images and hands out download references.
//
// The snapshot feed lives in process memory, so a database file must be
// served by a single process.
package backend
