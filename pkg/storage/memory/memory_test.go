package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/storage"
)

func TestUsers_CRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := &api.User{Username: "sManager", DisplayName: "Site Manager"}
	if err := s.Users().Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == 0 {
		t.Error("Create did not assign an ID")
	}

	if err := s.Users().Create(ctx, &api.User{Username: "sManager"}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate Create = %v, want ErrConflict", err)
	}

	got, err := s.Users().FindByUsername(ctx, "sManager")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if got.DisplayName != "Site Manager" {
		t.Errorf("DisplayName = %q", got.DisplayName)
	}

	// Returned objects are copies.
	got.DisplayName = "mutated"
	again, _ := s.Users().FindByUsername(ctx, "sManager")
	if again.DisplayName != "Site Manager" {
		t.Error("stored user was mutated through a returned copy")
	}

	if err := s.Users().Delete(ctx, "sManager"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Users().FindByUsername(ctx, "sManager"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FindByUsername after delete = %v, want ErrNotFound", err)
	}
}

func TestProjects_SlugAddressing(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := &api.Project{Name: "Ganeti Web Manager", Slugs: []string{"gwm", "ganeti-webmgr"}}
	if err := s.Projects().Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Reachable by either slug.
	for _, slug := range []string{"gwm", "ganeti-webmgr"} {
		got, err := s.Projects().FindBySlug(ctx, slug)
		if err != nil {
			t.Fatalf("FindBySlug(%q): %v", slug, err)
		}
		if got.Name != "Ganeti Web Manager" {
			t.Errorf("Name = %q", got.Name)
		}
	}

	// Slug collision with another project is rejected.
	err := s.Projects().Create(ctx, &api.Project{Name: "Other", Slugs: []string{"gwm"}})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("colliding Create = %v, want ErrConflict", err)
	}

	// Update can rename slugs; the old ones stop resolving.
	upd := &api.Project{Name: "Ganeti Web Manager", Slugs: []string{"ganeti"}}
	if err := s.Projects().Update(ctx, "gwm", upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := s.Projects().FindBySlug(ctx, "gwm"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("old slug still resolves: %v", err)
	}
	if _, err := s.Projects().FindBySlug(ctx, "ganeti"); err != nil {
		t.Errorf("new slug does not resolve: %v", err)
	}
}

func TestActivities_CRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Activities().Create(ctx, &api.Activity{Name: "Documentation", Slug: "docs"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Activities().Create(ctx, &api.Activity{Name: "Docs Again", Slug: "docs"}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate slug Create = %v, want ErrConflict", err)
	}

	if err := s.Activities().Update(ctx, "docs", &api.Activity{Name: "Documentation", Slug: "documentation"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := s.Activities().FindBySlug(ctx, "documentation"); err != nil {
		t.Errorf("renamed slug does not resolve: %v", err)
	}
}

func TestTimes_FilterAndSummary(t *testing.T) {
	s := New()
	ctx := context.Background()

	entries := []*api.TimeEntry{
		{Duration: 3600, User: "sManager", Project: "gwm", Activities: []string{"docs"}, DateWorked: "2015-04-01"},
		{Duration: 1800, User: "sManager", Project: "gwm", Activities: []string{"dev"}, DateWorked: "2015-04-02"},
		{Duration: 7200, User: "deanj", Project: "pgd", Activities: []string{"dev"}, DateWorked: "2015-04-03"},
	}
	for _, e := range entries {
		if err := s.Times().Create(ctx, e); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := s.Times().List(ctx, storage.TimeFilter{User: "sManager"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List(user=sManager) = %d entries, want 2", len(got))
	}

	start, _ := api.ParseDate("2015-04-02")
	got, err = s.Times().List(ctx, storage.TimeFilter{Start: start})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List(start=2015-04-02) = %d entries, want 2", len(got))
	}

	sums, err := s.Times().Summary(ctx, storage.TimeFilter{})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("Summary = %d rows, want 2", len(sums))
	}
	// Sorted by project slug: gwm, pgd.
	if sums[0].Project != "gwm" || sums[0].Duration != 5400 || sums[0].Entries != 2 {
		t.Errorf("summary[0] = %+v", sums[0])
	}
	if sums[1].Project != "pgd" || sums[1].Duration != 7200 || sums[1].Entries != 1 {
		t.Errorf("summary[1] = %+v", sums[1])
	}
}

func TestTimes_UpdatePreservesCreatedAt(t *testing.T) {
	s := New()
	ctx := context.Background()

	e := &api.TimeEntry{Duration: 600, User: "deanj", Project: "pgd", DateWorked: "2015-04-01"}
	if err := s.Times().Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	created := e.CreatedAt

	time.Sleep(time.Millisecond)

	upd := &api.TimeEntry{Duration: 900, User: "deanj", Project: "pgd", DateWorked: "2015-04-01"}
	if err := s.Times().Update(ctx, e.ID, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := s.Times().Find(ctx, e.ID)
	if !got.CreatedAt.Equal(created) {
		t.Error("Update changed CreatedAt")
	}
	if got.Duration != 900 {
		t.Errorf("Duration = %d, want 900", got.Duration)
	}
}
