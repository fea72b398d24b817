package store

import (
	"testing"

	"github.com/google/uuid"

	"smeinsights/internal/slug"
)

func TestCategoryStoreFindOrCreate(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)

	name := "Store Category " + uuid.NewString()[:8]
	t.Cleanup(func() { cleanCategories(t, db, name) })

	first, err := s.FindOrCreate(name)
	if err != nil {
		t.Fatalf("FindOrCreate (create): %v", err)
	}
	if first.Slug != slug.Generate(name) {
		t.Errorf("slug: got %q, want %q", first.Slug, slug.Generate(name))
	}

	second, err := s.FindOrCreate(name)
	if err != nil {
		t.Fatalf("FindOrCreate (find): %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second call created a new row: %s != %s", second.ID, first.ID)
	}

	found, err := s.FindBySlug(first.Slug)
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if found == nil || found.ID != first.ID {
		t.Errorf("FindBySlug: got %v, want %s", found, first.ID)
	}
}

func TestCategoryStoreFindOrCreateEmptySlug(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)

	if _, err := s.FindOrCreate("!!!"); err == nil {
		t.Error("expected error for a name with no slug characters")
	}
}

func TestCategoryStoreListCountsPosts(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	content := NewContentStore(db)
	authorID := testAuthorID(t, db)

	name := "Counted " + uuid.NewString()[:8]
	postSlug := "test-counted-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		cleanContent(t, db, postSlug)
		cleanCategories(t, db, name)
	})

	cat, err := s.FindOrCreate(name)
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if _, err := content.Create(newTestPost(postSlug, authorID, &cat.ID)); err != nil {
		t.Fatalf("Create post: %v", err)
	}

	cats, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, c := range cats {
		if c.ID == cat.ID {
			if c.PostCount != 1 {
				t.Errorf("post count: got %d, want 1", c.PostCount)
			}
			return
		}
	}
	t.Error("category missing from List")
}

func TestCategoryStoreFindByIDMissing(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)

	c, err := s.FindByID(uuid.New())
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if c != nil {
		t.Error("expected nil for random UUID")
	}
}
