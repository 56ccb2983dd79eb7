// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// package station provides the data access layer for ground-motion
// observations. This file contains the SQLite implementation of the Store
// interface, the only backend that supports dumping the database to a
// byte blob for embedding into event containers.
package station

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SqliteStore is the SQLite implementation of the Store interface.
type SqliteStore struct {
	bunStore
	dsn string
	// removeOnClose marks stores whose backing file is a temporary
	// restore artifact.
	removeOnClose bool
}

// Dump serializes the entire database into a byte slice. SQLite's
// VACUUM INTO writes a compacted single-file copy, which works for both
// file-backed and in-memory databases.
func (s *SqliteStore) Dump() ([]byte, error) {
	tmp, err := os.CreateTemp("", "shakelib-stationdump-*.db")
	if err != nil {
		return nil, fmt.Errorf("failed to create dump file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	// VACUUM INTO refuses to overwrite an existing file.
	if err := os.Remove(path); err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(path) }()

	quoted := strings.ReplaceAll(filepath.ToSlash(path), "'", "''")
	if _, err := s.db.Exec(fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return nil, fmt.Errorf("sqlite vacuum into failed: %w", err)
	}
	return os.ReadFile(path)
}

// RestoreStore materializes a dumped station database into a temporary
// file-backed sqlite store. Callers own the returned store and should
// Close it when done; the backing file is removed on Close.
func RestoreStore(dump []byte) (*SqliteStore, error) {
	tmp, err := os.CreateTemp("", "shakelib-stationdb-*.db")
	if err != nil {
		return nil, fmt.Errorf("failed to create restore file: %w", err)
	}
	path := tmp.Name()
	if _, err := tmp.Write(dump); err != nil {
		_ = tmp.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write restore file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	store, err := NewStoreFromDSN("sqlite", path)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	ss := store.(*SqliteStore)
	ss.removeOnClose = true
	return ss, nil
}

// Close releases the database handles and removes the backing file when
// the store was restored from a dump.
func (s *SqliteStore) Close() error {
	err := s.bunStore.Close()
	if s.removeOnClose && s.dsn != "" && !isMemoryDSN(s.dsn) {
		_ = os.Remove(s.dsn)
	}
	return err
}
