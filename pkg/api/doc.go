// Package api defines the wire-level types shared by the transport and
// storage layers: the business entities (users, projects, activities, time
// entries), the error envelope returned by every failing endpoint, and
// validation helpers for slugs and dates.
package api
