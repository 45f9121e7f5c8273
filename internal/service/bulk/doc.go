// Package bulk runs one bulk mailbox operation on behalf of a caller.
//
// It validates the request, serializes operations per mailbox with a
// distributed lock, builds a provider client for the caller's credential,
// drives the shared batch engine and turns the aggregated result into an
// error when the operation did not succeed.
package bulk
