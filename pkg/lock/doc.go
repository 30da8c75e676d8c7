// Package lock implements the lock/unlock state machine of a screen locker.
//
// A [Machine] starts Idle. Return starts recording; characters typed while recording are
// collected into a guarded buffer; the next Return submits them for exactly one verification
// attempt. Every attempt, successful or not, ends with the buffer wiped and the machine Idle.
// The only way out of the lock is a verifier-reported success, after which the [Terminator] is
// called once.
//
// All methods must be called from the same goroutine.
package lock
