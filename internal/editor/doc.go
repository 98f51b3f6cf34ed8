// Package editor implements the signing-workflow editor session.
//
// A Session owns every piece of mutable editor state for one agreement: the
// signer roster and its ordering (package reorder), the field board (package
// placement), the agreement metadata and one sync scheduler per stream
// (package syncer). Server ids that come back from the persistence service
// are merged by package identity.
//
// Single-writer loop:
// All state changes are tagged Actions processed one at a time on the
// goroutine that owns the session. Debounce timers and network requests run
// elsewhere and only enqueue internal actions; the owner picks them up with
// Drain, or Run picks them up automatically. Nothing outside the owner
// goroutine ever touches session state.
//
// Sync flow:
//
//  1. A local edit reports to the stream's scheduler, which arms a debounce
//     timer (loading never does).
//  2. The timer fire is queued; the owner turns it into a request carrying
//     the full collection and a sequence number from the logical clock.
//  3. The response is queued; the owner applies server ids to the state as
//     it is now and returns the stream to ARMED, re-arming at once if edits
//     arrived in the meantime.
//
// Errors from actions are *Error values with a Code. None of them is fatal:
// the session stays usable after any rejected action or failed request.
package editor
