// Package rbac implements role-based access control for TaskHub.
//
// This package implements:
//   - The role enum, its rank table and legacy role normalization
//   - The per-role permission table and permission predicates
//   - The access filter used by route middleware, page guards and navigation
//
// Every function is pure and total: unknown roles degrade to MEMBER and an
// absent user is denied, so callers only ever get a yes or a no.
package rbac
