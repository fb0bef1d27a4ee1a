package postgres

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/storage"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("timesync_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestPostgres_UserCRUD(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	u := &api.User{Username: "sManager", DisplayName: "Site Manager", Email: "smanager@osuosl.org"}
	if err := store.Users().Create(ctx, u); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.ID == 0 {
		t.Error("Create did not assign an ID")
	}

	if err := store.Users().Create(ctx, &api.User{Username: "sManager"}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate Create = %v, want ErrConflict", err)
	}

	got, err := store.Users().FindByUsername(ctx, "sManager")
	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}
	if got.Email != "smanager@osuosl.org" {
		t.Errorf("Email = %q", got.Email)
	}

	got.SiteAdmin = true
	if err := store.Users().Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	again, _ := store.Users().FindByUsername(ctx, "sManager")
	if !again.SiteAdmin {
		t.Error("Update did not persist SiteAdmin")
	}

	if err := store.Users().Delete(ctx, "sManager"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Users().FindByUsername(ctx, "sManager"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FindByUsername after delete = %v, want ErrNotFound", err)
	}
}

func TestPostgres_UserNotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.Users().FindByUsername(context.Background(), "nobody")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_ProjectSlugs(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	p := &api.Project{Name: "Ganeti Web Manager", URI: "https://code.osuosl.org/projects/ganeti-webmgr",
		Slugs: []string{"gwm", "ganeti-webmgr"}}
	if err := store.Projects().Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Reachable through either slug, and all slugs come back each time.
	for _, slug := range []string{"gwm", "ganeti-webmgr"} {
		got, err := store.Projects().FindBySlug(ctx, slug)
		if err != nil {
			t.Fatalf("FindBySlug(%q) failed: %v", slug, err)
		}
		if len(got.Slugs) != 2 {
			t.Errorf("FindBySlug(%q) returned %d slugs, want 2", slug, len(got.Slugs))
		}
	}

	// Slug collisions are rejected by the unique index.
	err := store.Projects().Create(ctx, &api.Project{Name: "Other", Slugs: []string{"gwm"}})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("colliding Create = %v, want ErrConflict", err)
	}

	// Updating replaces the slug set.
	upd := &api.Project{Name: "Ganeti Web Manager", Slugs: []string{"ganeti"}}
	if err := store.Projects().Update(ctx, "gwm", upd); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := store.Projects().FindBySlug(ctx, "gwm"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("old slug still resolves: %v", err)
	}
	if _, err := store.Projects().FindBySlug(ctx, "ganeti"); err != nil {
		t.Errorf("new slug does not resolve: %v", err)
	}

	if err := store.Projects().Delete(ctx, "ganeti"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Projects().FindBySlug(ctx, "ganeti"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FindBySlug after delete = %v, want ErrNotFound", err)
	}
}

func TestPostgres_ActivityCRUD(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	a := &api.Activity{Name: "Documentation", Slug: "docs"}
	if err := store.Activities().Create(ctx, a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Activities().Create(ctx, &api.Activity{Name: "Again", Slug: "docs"}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate Create = %v, want ErrConflict", err)
	}

	if err := store.Activities().Update(ctx, "docs", &api.Activity{Name: "Documentation", Slug: "documentation"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := store.Activities().FindBySlug(ctx, "documentation"); err != nil {
		t.Errorf("renamed slug does not resolve: %v", err)
	}

	list, err := store.Activities().List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List = %d activities, want 1", len(list))
	}
}

func TestPostgres_TimeFiltersAndSummary(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	entries := []*api.TimeEntry{
		{Duration: 3600, User: "sManager", Project: "gwm", Activities: []string{"docs"}, DateWorked: "2015-04-01"},
		{Duration: 1800, User: "sManager", Project: "gwm", Activities: []string{"dev"}, DateWorked: "2015-04-02"},
		{Duration: 7200, User: "deanj", Project: "pgd", Activities: []string{"dev"}, DateWorked: "2015-04-03"},
	}
	for _, e := range entries {
		if err := store.Times().Create(ctx, e); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	got, err := store.Times().List(ctx, storage.TimeFilter{User: "sManager"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List(user=sManager) = %d entries, want 2", len(got))
	}

	got, err = store.Times().List(ctx, storage.TimeFilter{Activity: "dev"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List(activity=dev) = %d entries, want 2", len(got))
	}

	start, _ := api.ParseDate("2015-04-02")
	end, _ := api.ParseDate("2015-04-02")
	got, err = store.Times().List(ctx, storage.TimeFilter{Start: start, End: end})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].DateWorked != "2015-04-02" {
		t.Errorf("List(2015-04-02..2015-04-02) = %+v, want single entry on that date", got)
	}

	sums, err := store.Times().Summary(ctx, storage.TimeFilter{})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("Summary = %d rows, want 2", len(sums))
	}
	if sums[0].Project != "gwm" || sums[0].Duration != 5400 || sums[0].Entries != 2 {
		t.Errorf("summary[0] = %+v", sums[0])
	}
	if sums[1].Project != "pgd" || sums[1].Duration != 7200 || sums[1].Entries != 1 {
		t.Errorf("summary[1] = %+v", sums[1])
	}
}

func TestPostgres_TimeUpdateAndDelete(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	e := &api.TimeEntry{Duration: 600, User: "deanj", Project: "pgd", DateWorked: "2015-04-01"}
	if err := store.Times().Create(ctx, e); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	upd := &api.TimeEntry{Duration: 900, User: "deanj", Project: "pgd", DateWorked: "2015-04-01"}
	if err := store.Times().Update(ctx, e.ID, upd); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.Times().Find(ctx, e.ID)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got.Duration != 900 {
		t.Errorf("Duration = %d, want 900", got.Duration)
	}

	if err := store.Times().Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Times().Find(ctx, e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Find after delete = %v, want ErrNotFound", err)
	}

	if err := store.Times().Delete(ctx, e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}
