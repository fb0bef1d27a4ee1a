// Package postgres provides a PostgreSQL implementation of storage.Store.
// It uses pgx/v5 for connection pooling and parameterized queries
// throughout; project slugs live in their own table so slug uniqueness is
// enforced by the database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/storage"
)

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Users returns the user store.
func (s *Store) Users() storage.Users { return &userStore{pool: s.pool} }

// Projects returns the project store.
func (s *Store) Projects() storage.Projects { return &projectStore{pool: s.pool} }

// Activities returns the activity store.
func (s *Store) Activities() storage.Activities { return &activityStore{pool: s.pool} }

// Times returns the time entry store.
func (s *Store) Times() storage.Times { return &timeStore{pool: s.pool} }

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// isDuplicateKey reports whether err is a unique constraint violation.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ----- users -----

type userStore struct {
	pool *pgxpool.Pool
}

const userColumns = `id, username, display_name, email, password_hash, site_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*api.User, error) {
	var u api.User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email,
		&u.PasswordHash, &u.SiteAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (*api.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (s *userStore) List(ctx context.Context) ([]*api.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var out []*api.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *userStore) Create(ctx context.Context, u *api.User) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, display_name, email, password_hash, site_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, u.Username, u.DisplayName, u.Email, u.PasswordHash, u.SiteAdmin,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (s *userStore) Update(ctx context.Context, u *api.User) error {
	err := s.pool.QueryRow(ctx, `
		UPDATE users
		SET display_name = $2, email = $3, password_hash = $4,
		    site_admin = $5, updated_at = now()
		WHERE username = $1
		RETURNING id, created_at, updated_at
	`, u.Username, u.DisplayName, u.Email, u.PasswordHash, u.SiteAdmin,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

func (s *userStore) Delete(ctx context.Context, username string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ----- projects -----

type projectStore struct {
	pool *pgxpool.Pool
}

func (s *projectStore) FindBySlug(ctx context.Context, slug string) (*api.Project, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT p.id, p.name, p.uri, p.created_at, p.updated_at,
		       array_agg(all_slugs.slug ORDER BY all_slugs.slug)
		FROM projects p
		JOIN project_slugs match ON match.project_id = p.id AND match.slug = $1
		JOIN project_slugs all_slugs ON all_slugs.project_id = p.id
		GROUP BY p.id
	`, slug)

	var p api.Project
	err := row.Scan(&p.ID, &p.Name, &p.URI, &p.CreatedAt, &p.UpdatedAt, &p.Slugs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	return &p, nil
}

func (s *projectStore) List(ctx context.Context) ([]*api.Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name, p.uri, p.created_at, p.updated_at,
		       array_agg(ps.slug ORDER BY ps.slug)
		FROM projects p
		JOIN project_slugs ps ON ps.project_id = p.id
		GROUP BY p.id
		ORDER BY p.name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []*api.Project
	for rows.Next() {
		var p api.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.URI, &p.CreatedAt, &p.UpdatedAt, &p.Slugs); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *projectStore) Create(ctx context.Context, p *api.Project) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO projects (name, uri)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, p.Name, p.URI).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}

	if err := insertSlugs(ctx, tx, p.ID, p.Slugs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *projectStore) Update(ctx context.Context, slug string, p *api.Project) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`SELECT project_id FROM project_slugs WHERE slug = $1`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("resolving slug: %w", err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE projects SET name = $2, uri = $3, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, id, p.Name, p.URI).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	p.ID = id

	// Replace the slug set wholesale.
	if _, err := tx.Exec(ctx, `DELETE FROM project_slugs WHERE project_id = $1`, id); err != nil {
		return fmt.Errorf("clearing slugs: %w", err)
	}
	if err := insertSlugs(ctx, tx, id, p.Slugs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *projectStore) Delete(ctx context.Context, slug string) error {
	// project_slugs rows cascade with the project.
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM projects
		WHERE id = (SELECT project_id FROM project_slugs WHERE slug = $1)
	`, slug)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func insertSlugs(ctx context.Context, tx pgx.Tx, projectID int64, slugs []string) error {
	for _, slug := range slugs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO project_slugs (project_id, slug) VALUES ($1, $2)`,
			projectID, slug,
		); err != nil {
			if isDuplicateKey(err) {
				return storage.ErrConflict
			}
			return fmt.Errorf("inserting slug %q: %w", slug, err)
		}
	}
	return nil
}

// ----- activities -----

type activityStore struct {
	pool *pgxpool.Pool
}

const activityColumns = `id, name, slug, created_at, updated_at`

func scanActivity(row pgx.Row) (*api.Activity, error) {
	var a api.Activity
	err := row.Scan(&a.ID, &a.Name, &a.Slug, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scanning activity: %w", err)
	}
	return &a, nil
}

func (s *activityStore) FindBySlug(ctx context.Context, slug string) (*api.Activity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE slug = $1`, slug)
	return scanActivity(row)
}

func (s *activityStore) List(ctx context.Context) ([]*api.Activity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+activityColumns+` FROM activities ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	var out []*api.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *activityStore) Create(ctx context.Context, a *api.Activity) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO activities (name, slug)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, a.Name, a.Slug).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

func (s *activityStore) Update(ctx context.Context, slug string, a *api.Activity) error {
	err := s.pool.QueryRow(ctx, `
		UPDATE activities SET name = $2, slug = $3, updated_at = now()
		WHERE slug = $1
		RETURNING id, created_at, updated_at
	`, slug, a.Name, a.Slug).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("updating activity: %w", err)
	}
	return nil
}

func (s *activityStore) Delete(ctx context.Context, slug string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM activities WHERE slug = $1`, slug)
	if err != nil {
		return fmt.Errorf("deleting activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ----- times -----

type timeStore struct {
	pool *pgxpool.Pool
}

const timeColumns = `id, duration, username, project_slug, activity_slugs,
	notes, issue_uri, date_worked, created_at, updated_at`

func scanTime(row pgx.Row) (*api.TimeEntry, error) {
	var t api.TimeEntry
	var worked time.Time
	err := row.Scan(&t.ID, &t.Duration, &t.User, &t.Project, &t.Activities,
		&t.Notes, &t.IssueURI, &worked, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scanning time entry: %w", err)
	}
	t.DateWorked = worked.Format(api.DateFormat)
	return &t, nil
}

func (s *timeStore) Find(ctx context.Context, id int64) (*api.TimeEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+timeColumns+` FROM times WHERE id = $1`, id)
	return scanTime(row)
}

// filterClause builds the WHERE clause for a TimeFilter. The returned args
// line up with $1..$n placeholders.
func filterClause(f storage.TimeFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.User != "" {
		add("username = $%d", f.User)
	}
	if f.Project != "" {
		add("project_slug = $%d", f.Project)
	}
	if f.Activity != "" {
		add("$%d = ANY(activity_slugs)", f.Activity)
	}
	if !f.Start.IsZero() {
		add("date_worked >= $%d", f.Start)
	}
	if !f.End.IsZero() {
		add("date_worked <= $%d", f.End)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *timeStore) List(ctx context.Context, f storage.TimeFilter) ([]*api.TimeEntry, error) {
	where, args := filterClause(f)

	rows, err := s.pool.Query(ctx,
		`SELECT `+timeColumns+` FROM times`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing time entries: %w", err)
	}
	defer rows.Close()

	var out []*api.TimeEntry
	for rows.Next() {
		t, err := scanTime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *timeStore) Create(ctx context.Context, t *api.TimeEntry) error {
	worked, err := api.ParseDate(t.DateWorked)
	if err != nil {
		return fmt.Errorf("parsing date_worked: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO times (duration, username, project_slug, activity_slugs,
		                   notes, issue_uri, date_worked)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, t.Duration, t.User, t.Project, t.Activities, t.Notes, t.IssueURI, worked,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		return fmt.Errorf("inserting time entry: %w", err)
	}
	return nil
}

func (s *timeStore) Update(ctx context.Context, id int64, t *api.TimeEntry) error {
	worked, err := api.ParseDate(t.DateWorked)
	if err != nil {
		return fmt.Errorf("parsing date_worked: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		UPDATE times
		SET duration = $2, username = $3, project_slug = $4,
		    activity_slugs = $5, notes = $6, issue_uri = $7,
		    date_worked = $8, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, id, t.Duration, t.User, t.Project, t.Activities, t.Notes, t.IssueURI, worked,
	).Scan(&t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("updating time entry: %w", err)
	}
	t.ID = id
	return nil
}

func (s *timeStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM times WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting time entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *timeStore) Summary(ctx context.Context, f storage.TimeFilter) ([]*api.ProjectSummary, error) {
	where, args := filterClause(f)

	rows, err := s.pool.Query(ctx, `
		SELECT project_slug, COALESCE(SUM(duration), 0), COUNT(*)
		FROM times`+where+`
		GROUP BY project_slug
		ORDER BY project_slug
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("summarizing time entries: %w", err)
	}
	defer rows.Close()

	var out []*api.ProjectSummary
	for rows.Next() {
		var sum api.ProjectSummary
		if err := rows.Scan(&sum.Project, &sum.Duration, &sum.Entries); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}
		out = append(out, &sum)
	}
	return out, rows.Err()
}
