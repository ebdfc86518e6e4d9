package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// documentRow is the single table backing every collection.
type documentRow struct {
	Collection string         `gorm:"primaryKey;size:64"`
	ID         string         `gorm:"primaryKey;size:64"`
	Data       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

// SQLStore implements DocumentStore on a relational database through GORM.
// Documents live in one table as JSON; queries use the dialect's JSON operators.
type SQLStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	}
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	return db, nil
}

// OpenPostgres connects to a PostgreSQL database.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	return db, nil
}

// NewSQLStore migrates the documents table and returns the store.
func NewSQLStore(db *gorm.DB, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return &SQLStore{db: db, logger: logger}, nil
}

func encode(doc Document) (datatypes.JSON, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func decode(row *documentRow) (Document, error) {
	var doc Document
	if err := json.Unmarshal(row.Data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s/%s: %w", row.Collection, row.ID, err)
	}
	if doc == nil {
		doc = Document{}
	}
	return withID(doc, row.ID), nil
}

func (s *SQLStore) CreateDocument(ctx context.Context, collection string, data Document) (string, error) {
	id := uuid.NewString()
	if err := checkKey(collection, id); err != nil {
		return "", err
	}
	doc, err := normalize(data)
	if err != nil {
		return "", err
	}
	delete(doc, "id")
	raw, err := encode(doc)
	if err != nil {
		return "", err
	}
	row := &documentRow{Collection: collection, ID: id, Data: raw}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", fmt.Errorf("failed to insert document %s/%s: %w", collection, id, err)
	}
	s.logger.Debug("Created document", "collection", collection, "id", id)
	return id, nil
}

func (s *SQLStore) UpdateDocument(ctx context.Context, collection, id string, partial Document) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	patch, err := normalize(partial)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		err := tx.Where("collection = ? AND id = ?", collection, id).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		if err != nil {
			return fmt.Errorf("failed to load document %s/%s: %w", collection, id, err)
		}
		cur, err := decode(&row)
		if err != nil {
			return err
		}
		delete(cur, "id")
		raw, err := encode(merge(cur, patch))
		if err != nil {
			return err
		}
		res := tx.Model(&documentRow{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{"data": raw, "updated_at": time.Now()})
		if res.Error != nil {
			return fmt.Errorf("failed to update document %s/%s: %w", collection, id, res.Error)
		}
		s.logger.Debug("Updated document", "collection", collection, "id", id, "fields", len(patch))
		return nil
	})
}

func (s *SQLStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&documentRow{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	s.logger.Debug("Deleted document", "collection", collection, "id", id)
	return nil
}

func (s *SQLStore) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	if err := checkKey(collection, id); err != nil {
		return nil, err
	}
	var row documentRow
	err := s.db.WithContext(ctx).Where("collection = ? AND id = ?", collection, id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s/%s: %w", collection, id, err)
	}
	return decode(&row)
}

// QueryDocuments filters with a JSON equality on the top-level field, ordered by id.
func (s *SQLStore) QueryDocuments(ctx context.Context, collection, field string, value any) ([]Document, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection cannot be empty", ErrInvalidArgument)
	}
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Where(datatypes.JSONQuery("data").Equals(value, field)).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by %s: %w", collection, field, err)
	}
	out := make([]Document, 0, len(rows))
	for i := range rows {
		doc, err := decode(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
