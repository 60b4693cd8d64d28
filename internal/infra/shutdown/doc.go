// Package shutdown coordinates graceful termination of the server.
//
// Components register hooks as they start; on SIGINT, SIGTERM or
// cancellation of the parent context the hooks run in reverse order
// under a shared deadline.
package shutdown
