// Package core contains the pure domain model of the loan lifecycle:
// entities, the loan state machine, the suspension policy and the policy
// tunables. Nothing in this package performs I/O or acquires locks - the
// engine is responsible for supplying a consistent snapshot to the Decide
// functions and for persisting the mutations they return.
package core
