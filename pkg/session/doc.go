/*
Package session implements the lifecycle of a single game session and the
coordination of concurrent access to many of them.

A Session is the state machine NotStarted → InProgress → Ended. It owns the
opaque game state and changes it only through its rule collaborator, one
action at a time. The Manager serializes mutations per session across
goroutines (and, with a DistributedLocker, across replicas) and persists
snapshots through a ports.SnapshotStore.
*/
package session
