// Package model defines the records persisted by electromanage and the
// domain error taxonomy shared by every service.
//
// Records:
//   - Component: one inventory part with stock on hand and unit cost
//   - CartLine: a reservation against a component's stock
//   - Transaction: an immutable order record written by checkout
//   - Setting: a key with a JSON value
//
// All JSON field names are camelCase so that export files and remote
// documents stay readable by older clients.
package model
