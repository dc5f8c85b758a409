// Package inventory keeps a client's view of a group's pantry consistent with
// the backend collection and performs validated item mutations.
//
// The local item list is only ever replaced by snapshots from the live
// subscription. A mutation returns once the subscription has delivered a
// snapshot that includes its write, so a client always sees its own writes
// on the next call. The single optimistic change is the open detail view,
// which is patched after UpdateItem when that snapshot has not arrived.
//
// Name uniqueness is checked against the local list, so two clients racing
// on the same name can both succeed.
package inventory
