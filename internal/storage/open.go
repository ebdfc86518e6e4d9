package storage

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"go-site-builder/pkg/fsutils"
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the DocumentStore for driver. For json, path is the base
// directory; for sqlite, path is a directory holding site-builder.db unless it
// already ends in ".db". The returned Closer releases database connections.
func Open(driver, path, dsn string, logger *slog.Logger) (DocumentStore, io.Closer, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nopCloser{}, nil
	case DriverJSON, "":
		s, err := NewJSONStore(path, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case DriverSQLite:
		file := path
		if filepath.Ext(file) != ".db" {
			file = filepath.Join(path, "site-builder.db")
		}
		if err := fsutils.CreateDir(filepath.Dir(file)); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := OpenSQLite(file)
		if err != nil {
			return nil, nil, err
		}
		s, err := NewSQLStore(db, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case DriverPostgres:
		db, err := OpenPostgres(dsn)
		if err != nil {
			return nil, nil, err
		}
		s, err := NewSQLStore(db, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage driver %q", ErrInvalidArgument, driver)
	}
}
