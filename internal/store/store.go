// Package store is a SQLite-backed document store implementing the
// transport collaborator for local deployments.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"pantrybook/internal/models"
	"pantrybook/internal/transport"
)

// StoredDocument is a recipe document row. Content holds the document's
// JSON; Tags mirrors the document's tags into their own column so rows
// can be filtered without decoding the content blob.
type StoredDocument struct {
	ID        uint               `gorm:"primary_key"`
	Name      string             `gorm:"unique_index"`
	Content   string             `gorm:"type:text"`
	Tags      models.StringSlice `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName sets the table name for StoredDocument
func (StoredDocument) TableName() string {
	return "documents"
}

// Store wraps the database connection.
type Store struct {
	db *gorm.DB
}

// Open initializes the database connection and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&StoredDocument{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListFiles enumerates stored documents as file entries.
func (s *Store) ListFiles(ctx context.Context) ([]transport.FileInfo, error) {
	var rows []StoredDocument
	if err := s.db.Select("name").Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}

	files := make([]transport.FileInfo, 0, len(rows))
	for _, row := range rows {
		files = append(files, transport.FileInfo{Type: "file", Name: row.Name})
	}
	return files, nil
}

// FetchDocument retrieves and decodes the document stored under name.
func (s *Store) FetchDocument(ctx context.Context, name string) (*models.RecipeDocument, error) {
	var row StoredDocument
	if err := s.db.Where("name = ?", name).First(&row).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, &transport.RetrievalError{Name: name, Err: transport.ErrNotFound}
		}
		return nil, &transport.RetrievalError{Name: name, Err: err}
	}

	var doc models.RecipeDocument
	if err := json.Unmarshal([]byte(row.Content), &doc); err != nil {
		return nil, &transport.RetrievalError{Name: name, Err: fmt.Errorf("decode document: %w", err)}
	}
	return &doc, nil
}

// FetchDocumentBase64 is the base64 channel of the transport surface.
// Local rows hold plain JSON, so it reduces to FetchDocument; the wrapping
// only exists on the HTTP wire.
func (s *Store) FetchDocumentBase64(ctx context.Context, name string) (*models.RecipeDocument, error) {
	return s.FetchDocument(ctx, name)
}

// WriteDocument inserts or replaces the document stored under name.
func (s *Store) WriteDocument(ctx context.Context, name string, doc *models.RecipeDocument) error {
	content, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	var row StoredDocument
	err = s.db.Where("name = ?", name).First(&row).Error
	switch {
	case err == nil:
		row.Content = string(content)
		row.Tags = doc.Tags
		return s.db.Save(&row).Error
	case gorm.IsRecordNotFoundError(err):
		return s.db.Create(&StoredDocument{Name: name, Content: string(content), Tags: doc.Tags}).Error
	default:
		return err
	}
}

// DocumentExists reports whether a document is stored under name.
func (s *Store) DocumentExists(ctx context.Context, name string) (bool, error) {
	var count int
	if err := s.db.Model(&StoredDocument{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Seed loads every *.json file in dir into the store, skipping names that
// already exist. Used to bootstrap a fresh local database.
func (s *Store) Seed(ctx context.Context, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, err
	}

	seeded := 0
	for _, path := range paths {
		name := filepath.Base(path)
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		exists, err := s.DocumentExists(ctx, name)
		if err != nil {
			return seeded, err
		}
		if exists {
			continue
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return seeded, err
		}
		var doc models.RecipeDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return seeded, fmt.Errorf("seed %s: %w", name, err)
		}
		if err := s.WriteDocument(ctx, name, &doc); err != nil {
			return seeded, err
		}
		seeded++
	}
	return seeded, nil
}
