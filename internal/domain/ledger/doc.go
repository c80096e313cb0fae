// Package ledger models the customer due ledger: the financial state of
// orders, customers, due payments with their allocations, and the
// per-customer rollups derived from them.
package ledger
