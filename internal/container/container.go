// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// Package container implements the single-file event containers that
// carry everything belonging to one ShakeMap run: configuration,
// event parameters, rupture geometry, station data and the computed
// ground motion grids. A container is a SQLite file holding YAML
// dictionaries, zstd-compressed blobs and grid datasets.
package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/zstd"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/seisio/shakelib/internal/logging"
)

// dictionaryModel stores small structured documents as YAML.
type dictionaryModel struct {
	bun.BaseModel `bun:"table:dictionary"`

	Name string `bun:"name,pk"`
	Body string `bun:"body,notnull"`
}

// blobModel stores larger payloads compressed with zstd.
type blobModel struct {
	bun.BaseModel `bun:"table:blob"`

	Name string `bun:"name,pk"`
	Data []byte `bun:"data,notnull"`
}

// Container is the shared storage layer under the input and output
// containers.
type Container struct {
	path string
	db   *sql.DB
	bun  *bun.DB
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// Create makes a new container file, failing if one already exists at
// path.
func Create(path string) (*Container, error) {
	return open(path, true)
}

// Open opens an existing container file.
func Open(path string) (*Container, error) {
	return open(path, false)
}

func open(path string, create bool) (*Container, error) {
	start := time.Now()
	if !create {
		// sql.Open would silently create an empty database here.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("no container at %s: %w", path, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open container: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	bdb := bun.NewDB(db, sqlitedialect.New())
	ctx := context.Background()

	if create {
		var n int
		err := db.QueryRowContext(ctx,
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'dictionary'`).Scan(&n)
		if err == nil && n > 0 {
			db.Close()
			return nil, fmt.Errorf("container %s already exists", path)
		}
	}

	for _, model := range []any{(*dictionaryModel)(nil), (*blobModel)(nil), (*datasetModel)(nil)} {
		if _, err := bdb.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create container schema: %w", err)
		}
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	logging.Debugf("container: opened %s in %s", path, time.Since(start))
	return &Container{path: path, db: db, bun: bdb, enc: enc, dec: dec}, nil
}

// Path returns the container file path.
func (c *Container) Path() string { return c.path }

// Close releases the container resources.
func (c *Container) Close() error {
	c.enc.Close()
	c.dec.Close()
	return c.db.Close()
}

// SetDictionary stores a document under name, replacing any previous
// version.
func (c *Container) SetDictionary(name string, doc any) error {
	body, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode dictionary %s: %w", name, err)
	}
	m := &dictionaryModel{Name: name, Body: string(body)}
	_, err = c.bun.NewInsert().Model(m).
		On("CONFLICT (name) DO UPDATE").
		Set("body = EXCLUDED.body").
		Exec(context.Background())
	return err
}

// Dictionary decodes the document stored under name into out.
func (c *Container) Dictionary(name string, out any) error {
	m := new(dictionaryModel)
	err := c.bun.NewSelect().Model(m).Where("name = ?", name).Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("container has no dictionary %q", name)
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal([]byte(m.Body), out)
}

// HasDictionary reports whether a document is stored under name.
func (c *Container) HasDictionary(name string) bool {
	n, err := c.bun.NewSelect().Model((*dictionaryModel)(nil)).
		Where("name = ?", name).Count(context.Background())
	return err == nil && n > 0
}

// DropDictionary removes the document stored under name.
func (c *Container) DropDictionary(name string) error {
	_, err := c.bun.NewDelete().Model((*dictionaryModel)(nil)).
		Where("name = ?", name).Exec(context.Background())
	return err
}

// SetBlob stores a compressed payload under name, replacing any
// previous version.
func (c *Container) SetBlob(name string, data []byte) error {
	m := &blobModel{Name: name, Data: c.enc.EncodeAll(data, nil)}
	_, err := c.bun.NewInsert().Model(m).
		On("CONFLICT (name) DO UPDATE").
		Set("data = EXCLUDED.data").
		Exec(context.Background())
	return err
}

// Blob returns the payload stored under name.
func (c *Container) Blob(name string) ([]byte, error) {
	m := new(blobModel)
	err := c.bun.NewSelect().Model(m).Where("name = ?", name).Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("container has no blob %q", name)
	}
	if err != nil {
		return nil, err
	}
	return c.dec.DecodeAll(m.Data, nil)
}

// HasBlob reports whether a payload is stored under name.
func (c *Container) HasBlob(name string) bool {
	n, err := c.bun.NewSelect().Model((*blobModel)(nil)).
		Where("name = ?", name).Count(context.Background())
	return err == nil && n > 0
}

// DropBlob removes the payload stored under name.
func (c *Container) DropBlob(name string) error {
	_, err := c.bun.NewDelete().Model((*blobModel)(nil)).
		Where("name = ?", name).Exec(context.Background())
	return err
}
