// Package observability builds the structured zap logger shared by the
// HTTP layer, services and the RBAC core.
package observability
