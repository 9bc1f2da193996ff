// Package domain holds the shared types and contracts of the governance
// core: admission (rate limiting) and capacity (quota) are deliberately
// separate concerns with opposite failure policies.
//
// Failure policy per component:
//
//	rate limiter   fail open    store error admits the request and is logged
//	quota ledger   fail closed  any error aborts the enclosing transaction
//	reclaimer      item-scoped  an item error rolls back that item's savepoint only
//
// Exceeding a hard cap is the failure mode the ledger exists to prevent, so
// it never guesses; losing a throttling decision only costs smoothing, so the
// limiter never blocks traffic on its own infrastructure.
package domain
