// Package harness runs record-store scenarios as executable contract tests.
//
// A scenario names one table, seeds it, runs a flow of operations against
// a fresh in-memory store, and checks each outcome, the trace, and the
// final table contents.
//
// # Scenario Format
//
//	name: users_update
//	description: "update patches only the first match"
//	table: users
//	setup:
//	  - { email: a@example.com, age: 30 }
//	flow:
//	  - op: add
//	    record: { email: b@example.com, age: 30 }
//	    expect: { id: 2 }
//	  - op: update
//	    field: age
//	    value: 30
//	    patch: { age: 31 }
//	    expect: { id: 1 }
//	  - op: update
//	    field: email
//	    value: nobody@example.com
//	    patch: { age: 1 }
//	    expect: { error: NOT_FOUND }
//	assertions:
//	  - type: final_count
//	    count: 2
//	  - type: final_state
//	    where: { email: a@example.com }
//	    expect: { age: 31 }
//
// Operations are add, get, list, update, delete and clear. Expected errors
// are matched by recordstore error code (NOT_FOUND, UNKNOWN_FIELD,
// TYPE_MISMATCH, ...) or STORAGE for any engine failure.
//
// # Assertion Types
//
//   - trace_contains: an operation appears in the trace with matching args
//   - trace_order: operations appear in the given order
//   - trace_count: an operation appears exactly N times
//   - final_count: the table holds exactly N records
//   - final_state: exactly one record matches where, and has the expected fields
//
// # Determinism
//
// Each run uses an in-memory database, a fixed handle token (from
// handle_token, or "test-handle-default"), and a sequence counter in place
// of timestamps, so traces can be compared against golden files.
package harness
