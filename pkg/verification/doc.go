// Package verification implements the email ownership proof flow. An account
// starts unverified, moves to pending when a verification secret is issued,
// and becomes verified exactly once when the secret is presented back within
// its validity window.
//
// Issuance is rate limited per account so a client cannot flood an inbox.
// Validation consumes the secret atomically, so a link can be used at most
// once even under concurrent requests. Expired secrets are consumed too, but
// the account stays pending so a fresh resend can succeed.
package verification
