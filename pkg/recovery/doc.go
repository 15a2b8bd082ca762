// Package recovery implements the forgotten-password flow: a reset secret is
// mailed to the account address, and presenting it back authorizes a single
// password change through the credential store.
//
// Requesting a reset never reveals whether an address exists. Applying a
// reset clears the secret with a compare-and-clear, so a link works at most
// once; if the credential store is unavailable the secret is left in place
// and the same link can be retried within its validity window.
package recovery
