// Package batch implements the bulk mailbox operation engine.
//
// An Engine takes an OperationRequest (delete or label modification over an
// arbitrary number of message ids), partitions the ids into provider-legal
// chunks and executes each chunk against a MailboxClient:
//
//   - chunks run sequentially and in input order
//   - each chunk is retried with exponential backoff while its error is retryable
//   - a shared circuit breaker throttles chunks after consecutive failures
//   - label modification chunks use an adaptive size that grows on success and
//     shrinks on failure; deletes always use the provider maximum of 1000
//
// Run never returns an error. Callers inspect the returned Result, or turn it
// into an error with ValidateResult.
//
// Circuit breaker and adaptive size state belong to the Engine and are shared
// by every request it serves, so one Engine should be created per process.
package batch
