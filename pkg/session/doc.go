/*
Package session serializes access to stored checkpoints.

A Manager wraps any ports.CheckpointStore and guards every operation on a run
with a per-run mutex. When several weave processes share one backend, a
ports.DistributedLocker extends the guard across them.
*/
package session
