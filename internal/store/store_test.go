package store

import (
	"context"
	"errors"
	"testing"

	"pantrybook/internal/models"
	"pantrybook/internal/transport"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteAndFetchDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := &models.RecipeDocument{
		Name:        "Tomato Soup",
		Servings:    4,
		Ingredients: []models.RawIngredient{{Text: "2 cans chopped tomatoes"}},
		Tags:        models.StringSlice{"soup", "vegetarian"},
	}
	if err := s.WriteDocument(ctx, "soup.json", doc); err != nil {
		t.Fatalf("WriteDocument() error: %v", err)
	}

	got, err := s.FetchDocument(ctx, "soup.json")
	if err != nil {
		t.Fatalf("FetchDocument() error: %v", err)
	}
	if got.Name != "Tomato Soup" || got.Servings != 4 {
		t.Errorf("FetchDocument() = %+v", got)
	}
	if len(got.Ingredients) != 1 || got.Ingredients[0].Text != "2 cans chopped tomatoes" {
		t.Errorf("ingredients round-trip = %+v", got.Ingredients)
	}
}

func TestTagsStoredAsColumn(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := &models.RecipeDocument{
		Name: "Tomato Soup",
		Tags: models.StringSlice{"soup", "vegetarian"},
	}
	if err := s.WriteDocument(ctx, "soup.json", doc); err != nil {
		t.Fatalf("WriteDocument() error: %v", err)
	}

	var row StoredDocument
	if err := s.db.Where("name = ?", "soup.json").First(&row).Error; err != nil {
		t.Fatalf("row lookup error: %v", err)
	}
	if len(row.Tags) != 2 || row.Tags[0] != "soup" || row.Tags[1] != "vegetarian" {
		t.Errorf("Tags column = %v, want [soup vegetarian]", row.Tags)
	}

	// Rows can be filtered on the column without decoding content.
	var count int
	if err := s.db.Model(&StoredDocument{}).Where("tags LIKE ?", `%"soup"%`).Count(&count).Error; err != nil {
		t.Fatalf("tag filter error: %v", err)
	}
	if count != 1 {
		t.Errorf("tag filter matched %d rows, want 1", count)
	}

	// Replacing the document rewrites the column.
	doc.Tags = models.StringSlice{"stew"}
	if err := s.WriteDocument(ctx, "soup.json", doc); err != nil {
		t.Fatal(err)
	}
	row = StoredDocument{}
	if err := s.db.Where("name = ?", "soup.json").First(&row).Error; err != nil {
		t.Fatal(err)
	}
	if len(row.Tags) != 1 || row.Tags[0] != "stew" {
		t.Errorf("Tags column after replace = %v, want [stew]", row.Tags)
	}
}

func TestWriteDocumentReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WriteDocument(ctx, "soup.json", &models.RecipeDocument{Name: "v1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteDocument(ctx, "soup.json", &models.RecipeDocument{Name: "v2"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.FetchDocument(ctx, "soup.json")
	if err != nil {
		t.Fatalf("FetchDocument() error: %v", err)
	}
	if got.Name != "v2" {
		t.Errorf("FetchDocument().Name = %q, want \"v2\"", got.Name)
	}

	files, err := s.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles() error: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("ListFiles() = %d entries after replace, want 1", len(files))
	}
}

func TestFetchMissingDocument(t *testing.T) {
	s := openTestStore(t)

	_, err := s.FetchDocument(context.Background(), "missing.json")
	if !errors.Is(err, transport.ErrNotFound) {
		t.Errorf("FetchDocument(missing) error = %v, want ErrNotFound", err)
	}
	var re *transport.RetrievalError
	if !errors.As(err, &re) {
		t.Errorf("FetchDocument(missing) error = %T, want *RetrievalError", err)
	}
}

func TestListFilesSorted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"c.json", "a.json", "b.json"} {
		if err := s.WriteDocument(ctx, name, &models.RecipeDocument{Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	files, err := s.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles() error: %v", err)
	}
	want := []string{"a.json", "b.json", "c.json"}
	for i, file := range files {
		if file.Type != "file" {
			t.Errorf("ListFiles()[%d].Type = %q, want \"file\"", i, file.Type)
		}
		if file.Name != want[i] {
			t.Errorf("ListFiles()[%d].Name = %q, want %q", i, file.Name, want[i])
		}
	}
}

func TestDocumentExists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WriteDocument(ctx, "soup.json", &models.RecipeDocument{Name: "soup"}); err != nil {
		t.Fatal(err)
	}

	exists, err := s.DocumentExists(ctx, "soup.json")
	if err != nil || !exists {
		t.Errorf("DocumentExists(soup.json) = %v, %v, want true", exists, err)
	}
	exists, err = s.DocumentExists(ctx, "missing.json")
	if err != nil || exists {
		t.Errorf("DocumentExists(missing.json) = %v, %v, want false", exists, err)
	}
}
