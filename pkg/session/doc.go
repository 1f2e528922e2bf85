/*
Package session serializes access to persisted flow sessions.

A Manager wraps a state store with per-session locking so concurrent
resume and input calls against the same session cannot interleave, and
optionally extends that guarantee across replicas with a distributed
locker.
*/
package session
