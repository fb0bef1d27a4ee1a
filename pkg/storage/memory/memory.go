// Package memory provides an in-process storage.Store for development and
// tests. All lookups are guarded by a single mutex; returned objects are
// copies, so callers cannot mutate stored state.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	users        map[string]*api.User     // keyed by username
	projects     map[int64]*api.Project   // keyed by id
	projectSlugs map[string]int64         // slug -> project id
	activities   map[string]*api.Activity // keyed by slug
	times        map[int64]*api.TimeEntry // keyed by id
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:        make(map[string]*api.User),
		projects:     make(map[int64]*api.Project),
		projectSlugs: make(map[string]int64),
		activities:   make(map[string]*api.Activity),
		times:        make(map[int64]*api.TimeEntry),
	}
}

// Users returns the user store.
func (s *Store) Users() storage.Users { return (*users)(s) }

// Projects returns the project store.
func (s *Store) Projects() storage.Projects { return (*projects)(s) }

// Activities returns the activity store.
func (s *Store) Activities() storage.Activities { return (*activities)(s) }

// Times returns the time entry store.
func (s *Store) Times() storage.Times { return (*times)(s) }

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// ----- users -----

type users Store

func (u *users) FindByUsername(_ context.Context, username string) (*api.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	usr, ok := u.users[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *usr
	return &cp, nil
}

func (u *users) List(_ context.Context) ([]*api.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make([]*api.User, 0, len(u.users))
	for _, usr := range u.users {
		cp := *usr
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (u *users) Create(_ context.Context, usr *api.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.users[usr.Username]; ok {
		return storage.ErrConflict
	}

	now := time.Now().UTC()
	usr.ID = (*Store)(u).id()
	usr.CreatedAt = now
	usr.UpdatedAt = now

	cp := *usr
	u.users[usr.Username] = &cp
	return nil
}

func (u *users) Update(_ context.Context, usr *api.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	cur, ok := u.users[usr.Username]
	if !ok {
		return storage.ErrNotFound
	}

	usr.ID = cur.ID
	usr.CreatedAt = cur.CreatedAt
	usr.UpdatedAt = time.Now().UTC()

	cp := *usr
	u.users[usr.Username] = &cp
	return nil
}

func (u *users) Delete(_ context.Context, username string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.users[username]; !ok {
		return storage.ErrNotFound
	}
	delete(u.users, username)
	return nil
}

// ----- projects -----

type projects Store

func (p *projects) FindBySlug(_ context.Context, slug string) (*api.Project, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.projectSlugs[slug]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyProject(p.projects[id]), nil
}

func (p *projects) List(_ context.Context) ([]*api.Project, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*api.Project, 0, len(p.projects))
	for _, proj := range p.projects {
		out = append(out, copyProject(proj))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (p *projects) Create(_ context.Context, proj *api.Project) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, slug := range proj.Slugs {
		if _, taken := p.projectSlugs[slug]; taken {
			return storage.ErrConflict
		}
	}

	now := time.Now().UTC()
	proj.ID = (*Store)(p).id()
	proj.CreatedAt = now
	proj.UpdatedAt = now

	p.projects[proj.ID] = copyProject(proj)
	for _, slug := range proj.Slugs {
		p.projectSlugs[slug] = proj.ID
	}
	return nil
}

func (p *projects) Update(_ context.Context, slug string, proj *api.Project) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.projectSlugs[slug]
	if !ok {
		return storage.ErrNotFound
	}
	cur := p.projects[id]

	// New slugs must not collide with another project.
	for _, s := range proj.Slugs {
		if owner, taken := p.projectSlugs[s]; taken && owner != id {
			return storage.ErrConflict
		}
	}

	for _, s := range cur.Slugs {
		delete(p.projectSlugs, s)
	}

	proj.ID = id
	proj.CreatedAt = cur.CreatedAt
	proj.UpdatedAt = time.Now().UTC()

	p.projects[id] = copyProject(proj)
	for _, s := range proj.Slugs {
		p.projectSlugs[s] = id
	}
	return nil
}

func (p *projects) Delete(_ context.Context, slug string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.projectSlugs[slug]
	if !ok {
		return storage.ErrNotFound
	}
	for _, s := range p.projects[id].Slugs {
		delete(p.projectSlugs, s)
	}
	delete(p.projects, id)
	return nil
}

func copyProject(p *api.Project) *api.Project {
	cp := *p
	cp.Slugs = slices.Clone(p.Slugs)
	return &cp
}

// ----- activities -----

type activities Store

func (a *activities) FindBySlug(_ context.Context, slug string) (*api.Activity, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	act, ok := a.activities[slug]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *act
	return &cp, nil
}

func (a *activities) List(_ context.Context) ([]*api.Activity, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*api.Activity, 0, len(a.activities))
	for _, act := range a.activities {
		cp := *act
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (a *activities) Create(_ context.Context, act *api.Activity) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.activities[act.Slug]; ok {
		return storage.ErrConflict
	}

	now := time.Now().UTC()
	act.ID = (*Store)(a).id()
	act.CreatedAt = now
	act.UpdatedAt = now

	cp := *act
	a.activities[act.Slug] = &cp
	return nil
}

func (a *activities) Update(_ context.Context, slug string, act *api.Activity) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur, ok := a.activities[slug]
	if !ok {
		return storage.ErrNotFound
	}
	if act.Slug != slug {
		if _, taken := a.activities[act.Slug]; taken {
			return storage.ErrConflict
		}
	}

	act.ID = cur.ID
	act.CreatedAt = cur.CreatedAt
	act.UpdatedAt = time.Now().UTC()

	delete(a.activities, slug)
	cp := *act
	a.activities[act.Slug] = &cp
	return nil
}

func (a *activities) Delete(_ context.Context, slug string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.activities[slug]; !ok {
		return storage.ErrNotFound
	}
	delete(a.activities, slug)
	return nil
}

// ----- times -----

type times Store

func (t *times) Find(_ context.Context, id int64) (*api.TimeEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.times[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyTime(entry), nil
}

func (t *times) List(_ context.Context, f storage.TimeFilter) ([]*api.TimeEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*api.TimeEntry
	for _, entry := range t.times {
		if matches(entry, f) {
			out = append(out, copyTime(entry))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *times) Create(_ context.Context, entry *api.TimeEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	entry.ID = (*Store)(t).id()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	t.times[entry.ID] = copyTime(entry)
	return nil
}

func (t *times) Update(_ context.Context, id int64, entry *api.TimeEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.times[id]
	if !ok {
		return storage.ErrNotFound
	}

	entry.ID = id
	entry.CreatedAt = cur.CreatedAt
	entry.UpdatedAt = time.Now().UTC()

	t.times[id] = copyTime(entry)
	return nil
}

func (t *times) Delete(_ context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.times[id]; !ok {
		return storage.ErrNotFound
	}
	delete(t.times, id)
	return nil
}

func (t *times) Summary(ctx context.Context, f storage.TimeFilter) ([]*api.ProjectSummary, error) {
	entries, err := t.List(ctx, f)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*api.ProjectSummary)
	for _, entry := range entries {
		sum, ok := totals[entry.Project]
		if !ok {
			sum = &api.ProjectSummary{Project: entry.Project}
			totals[entry.Project] = sum
		}
		sum.Duration += entry.Duration
		sum.Entries++
	}

	out := make([]*api.ProjectSummary, 0, len(totals))
	for _, sum := range totals {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Project < out[j].Project })
	return out, nil
}

func matches(entry *api.TimeEntry, f storage.TimeFilter) bool {
	if f.User != "" && entry.User != f.User {
		return false
	}
	if f.Project != "" && entry.Project != f.Project {
		return false
	}
	if f.Activity != "" && !slices.Contains(entry.Activities, f.Activity) {
		return false
	}
	if !f.Start.IsZero() || !f.End.IsZero() {
		worked, err := api.ParseDate(entry.DateWorked)
		if err != nil {
			return false
		}
		if !f.Start.IsZero() && worked.Before(f.Start) {
			return false
		}
		if !f.End.IsZero() && worked.After(f.End) {
			return false
		}
	}
	return true
}

func copyTime(t *api.TimeEntry) *api.TimeEntry {
	cp := *t
	cp.Activities = slices.Clone(t.Activities)
	return &cp
}
