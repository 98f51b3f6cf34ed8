// Package syncer decides when local edits are sent to the persistence service.
//
// Each tracked stream (signers, fields, title, dates) has its own Scheduler.
// A scheduler pairs an explicit state machine with a single-shot debounce
// timer:
//
//	INIT --loaded--> ARMED --edit--> PENDING --elapsed--> SYNCING
//	                   ^                                     |
//	                   |                         responded   |   failed
//	                   |                                     v     |
//	                   +--------reconciled----- RECONCILING        |
//	                   +-------------------------------------------+
//
// ARMED and PENDING also accept an explicit flush that jumps straight to
// SYNCING (confirm and manual retry).
//
// Loading never counts as an edit, so nothing is sent until the operator
// changes something. Every edit in ARMED arms exactly one pending sync and
// further edits in PENDING only push the deadline back. Edits that arrive
// while a request is outstanding set a dirty mark; the scheduler re-arms as
// soon as it is back in ARMED. Payloads always carry the full collection, so
// that one follow-up sync captures every edit made in the meantime.
//
// Applying a server response is not an edit. Callers report it with
// Responded and Reconciled and must not call Edited for it.
//
// Schedulers are not safe for concurrent use. The debounce timer fires on its
// own goroutine and only invokes the callback given to NewScheduler; the
// editor turns that into a queued action and hands the generation back
// through Elapsed on its own goroutine.
package syncer
