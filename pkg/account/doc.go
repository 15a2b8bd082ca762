// Package account owns the durable user-record view used by the
// verification and recovery flows: the explicit verification state and the
// two single-use secret slots, one per purpose.
//
// At most one live secret of a given kind exists per account; storing a new
// one supersedes the old value, which immediately stops validating. Consume
// operations behave as compare-and-clear so concurrent validations of the
// same secret yield exactly one success.
package account
