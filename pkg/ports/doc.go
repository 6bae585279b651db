/*
Package ports defines the driven ports (interfaces) of the session engine.

These interfaces decouple session orchestration from rule sets, decision
makers and storage backends, so the same lifecycle and timeout policy apply
to every game type.

# Key Interfaces

  - Rules: the rule collaborator of one game type (setup, legality, apply, terminal check).
  - AIProvider: a pluggable decision maker bound to AI-controlled players.
  - SnapshotStore: persists session snapshots and final results.
  - DistributedLocker: provides distributed locking for concurrent session access.
*/
package ports
