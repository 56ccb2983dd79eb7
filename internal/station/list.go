// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package station

import (
	"fmt"
	"path/filepath"

	"github.com/seisio/shakelib/internal/logging"
)

// List is the high-level station database handle used by the rest of the
// application. It wraps a Store with the ingest and export operations the
// event containers need.
type List struct {
	store Store
}

// NewList wraps an already-open store.
func NewList(store Store) *List {
	return &List{store: store}
}

// NewListFromXML creates a station database at the given DSN and ingests
// one or more ShakeMap XML input files into it. Use dbType "sqlite" and
// dsn ":memory:" for throwaway databases.
func NewListFromXML(dbType, dsn string, files ...string) (*List, error) {
	store, err := NewStoreFromDSN(dbType, dsn)
	if err != nil {
		return nil, err
	}
	l := &List{store: store}
	if err := l.AddData(files...); err != nil {
		_ = store.Close()
		return nil, err
	}
	return l, nil
}

// Restore materializes a dumped station database.
func Restore(dump []byte) (*List, error) {
	store, err := RestoreStore(dump)
	if err != nil {
		return nil, err
	}
	return &List{store: store}, nil
}

// Store exposes the underlying store.
func (l *List) Store() Store { return l.store }

// AddData parses the given ShakeMap XML input files and merges their
// stations and amplitudes into the database. Already-present stations and
// amplitudes are kept; new observations are appended.
func (l *List) AddData(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	records := map[string]*Record{}
	imtset := map[string]bool{}
	for _, file := range files {
		ims, err := ParseXMLFile(file, records)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", file, err)
		}
		for name := range ims {
			imtset[name] = true
		}
	}
	logging.Debugf("station: parsed %d station(s), %d IMT type(s) from %d file(s)",
		len(records), len(imtset), len(files))

	if err := l.store.Merge(records, imtset); err != nil {
		return err
	}
	for _, file := range files {
		_ = l.store.LogAction("INGEST_DATA", filepath.Base(file))
	}
	return nil
}

// Table returns the flattened observation table; see Store.Table.
func (l *List) Table(instrumented bool) (*Table, error) {
	return l.store.Table(instrumented)
}

// Dump serializes the database for embedding into a container. Only
// sqlite-backed lists can be dumped.
func (l *List) Dump() ([]byte, error) {
	ss, ok := l.store.(*SqliteStore)
	if !ok {
		return nil, fmt.Errorf("station database dump requires a sqlite backend")
	}
	return ss.Dump()
}

// Close releases the underlying store.
func (l *List) Close() error {
	return l.store.Close()
}
