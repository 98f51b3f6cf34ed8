// Package harness runs editor scenarios described in YAML.
//
// A scenario seeds an agreement in an in-process persistence service, opens
// an editor session against it and replays a list of steps. Each step is an
// editor action, an advance of the manual clock, or a one-shot failure
// injected into a service method. After every step the session's queue is
// drained, so debounce fires and sync completions are processed in a fixed
// order.
//
// # Scenario Format
//
//	name: reorder_confirm
//	description: "Dragging A to the end and confirming saves B, C, A"
//	seed:
//	  title: Lease
//	  pages: 1
//	  signers:
//	    - {uid: s-a, name: A, email: a@example.com}
//	steps:
//	  - action: move_signer
//	    args: {uid: s-a, position: 3}
//	  - action: confirm
//	  - advance: 2s
//	  - fail_next: syncSigners
//	  - action: confirm
//	    expect_error: VALIDATION
//	assertions:
//	  - type: order
//	    signers: [B, C, A]
//	  - type: sync_calls
//	    method: syncSigners
//	    count: 1
//
// # Assertion Types
//
//   - order: signer names in committed order
//   - steps: signer steps in committed order
//   - field_count: resident fields on every page
//   - visible_count: fields on the active page
//   - sync_calls: calls made to one service method
//   - pending: entities still waiting for a server id
//   - state: sync state of one stream
//
// # Deterministic Testing
//
// Every run uses a manual clock, sequential uids ("u-1", "u-2", ...) and an
// inline launcher, so the canonical snapshot of the final state is stable
// and can be compared against a golden file.
package harness
