// Package http implements the HTTP transport layer of the registration
// service: middleware (tracing, logging, session cookies, administrator
// authentication), the onboarding and OAuth route handlers, and the
// administrator panel API. Requests are decoded here and forwarded to the
// service layer; service errors are mapped to HTTP statuses in
// errors_mapper.go.
package http
