// Package storage defines the persistence interfaces for users, projects,
// activities, and time entries, plus the sentinel errors shared by all
// implementations. PostgreSQL and in-memory implementations live in
// subpackages behind the same Store interface.
package storage

import (
	"context"
	"time"

	"github.com/osuosl/timesync/pkg/api"
)

// Users is the user store. The token verifier and the primary credential
// verifiers resolve usernames through FindByUsername.
type Users interface {
	FindByUsername(ctx context.Context, username string) (*api.User, error)
	List(ctx context.Context) ([]*api.User, error)
	Create(ctx context.Context, u *api.User) error
	Update(ctx context.Context, u *api.User) error
	Delete(ctx context.Context, username string) error
}

// Projects is the project store. Projects are addressed by any of their
// slugs; slugs are unique across all projects.
type Projects interface {
	FindBySlug(ctx context.Context, slug string) (*api.Project, error)
	List(ctx context.Context) ([]*api.Project, error)
	Create(ctx context.Context, p *api.Project) error
	Update(ctx context.Context, slug string, p *api.Project) error
	Delete(ctx context.Context, slug string) error
}

// Activities is the activity store.
type Activities interface {
	FindBySlug(ctx context.Context, slug string) (*api.Activity, error)
	List(ctx context.Context) ([]*api.Activity, error)
	Create(ctx context.Context, a *api.Activity) error
	Update(ctx context.Context, slug string, a *api.Activity) error
	Delete(ctx context.Context, slug string) error
}

// TimeFilter narrows time entry listings and summaries. Zero values leave
// the corresponding dimension unbounded.
type TimeFilter struct {
	User     string
	Project  string
	Activity string
	Start    time.Time
	End      time.Time
}

// Times is the time entry store.
type Times interface {
	Find(ctx context.Context, id int64) (*api.TimeEntry, error)
	List(ctx context.Context, f TimeFilter) ([]*api.TimeEntry, error)
	Create(ctx context.Context, t *api.TimeEntry) error
	Update(ctx context.Context, id int64, t *api.TimeEntry) error
	Delete(ctx context.Context, id int64) error

	// Summary aggregates total duration and entry count per project,
	// honoring the same filter as List.
	Summary(ctx context.Context, f TimeFilter) ([]*api.ProjectSummary, error)
}

// Store aggregates the four stores behind one handle.
type Store interface {
	Users() Users
	Projects() Projects
	Activities() Activities
	Times() Times
	Close()
}
