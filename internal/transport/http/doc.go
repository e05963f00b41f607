// Package http implements the HTTP handlers of the TierVC API. Handlers
// only parse requests and shape responses; the evaluation flow lives in
// the services package.
//
// Errors are rendered as RFC 7807 problem documents through the shared
// ErrorHandler. The evaluate endpoint is the exception once streaming has
// begun: failures after the first byte arrive as an error event instead.
package http
