// Package harness runs YAML scenarios against a real Session.
//
// # Scenario Format
//
//	name: stock_five_checkout
//	description: "Selling the last five units empties stock"
//	setup:
//	  - action: component.add
//	    args: { name: "Arduino Uno R3", category: Microcontrollers, stock: 5, cost: "22.90" }
//	flow:
//	  - invoke: cart.add
//	    args: { component: id-1, quantity: 5 }
//	  - invoke: checkout
//	    args: {}
//	    expect:
//	      case: ok
//	      result: { state: committed }
//	assertions:
//	  - type: final_state
//	    table: components
//	    where: { id: id-1 }
//	    expect: { stock: 0 }
//
// # Actions
//
// component.add, component.update, component.adjust, component.delete,
// component.get, component.stats, component.seed, cart.add, cart.set,
// cart.remove, cart.clear, cart.show, checkout, history, settings.set,
// review.list. A completion's case is "ok" on success and the domain error
// code (e.g. INSUFFICIENT_STOCK) on failure.
//
// # Assertion Types
//
//   - trace_contains: an invocation of action with matching args exists
//   - trace_order: the actions were invoked in this relative order
//   - trace_count: action was invoked exactly count times
//   - final_state: a row of components, cart, transactions or settings
//     matching where has the expected fields
//
// # Deterministic Testing
//
// Every run uses a fresh database file, ids id-1, id-2, ... and a clock
// starting at testutil.Epoch that advances one second per reading, so
// traces are stable enough for golden comparison.
package harness
