// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/uptrace/bun"

	"github.com/seisio/shakelib/internal/grid"
)

// datasetModel stores one grid layer of an intensity measure. A full
// IMT entry is two rows, one for the mean field and one for its
// standard deviation, keyed by IMT name and component.
type datasetModel struct {
	bun.BaseModel `bun:"table:dataset"`

	ID        int64  `bun:"id,pk,autoincrement"`
	IMT       string `bun:"imt,notnull"`
	Component string `bun:"component,notnull"`
	Kind      string `bun:"kind,notnull"` // mean or std
	GeoDict   string `bun:"geodict,notnull"`
	Metadata  string `bun:"metadata"`
	Data      []byte `bun:"data,notnull"`
}

// DefaultComponent is the horizontal component stored when the caller
// does not pick one.
const DefaultComponent = "maximum"

// IMTData bundles the stored grids and metadata of one intensity
// measure.
type IMTData struct {
	Mean         *grid.Grid2D
	MeanMetadata map[string]any
	Std          *grid.Grid2D
	StdMetadata  map[string]any
}

// OutputContainer stores the computed ground motion grids of a run.
type OutputContainer struct {
	*Container
}

// CreateOutput makes a new, empty output container.
func CreateOutput(path string) (*OutputContainer, error) {
	base, err := Create(path)
	if err != nil {
		return nil, err
	}
	return &OutputContainer{Container: base}, nil
}

// OpenOutput opens an existing output container.
func OpenOutput(path string) (*OutputContainer, error) {
	base, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &OutputContainer{Container: base}, nil
}

// SetMetadata stores the run metadata document.
func (c *OutputContainer) SetMetadata(meta map[string]any) error {
	return c.SetDictionary("metadata", meta)
}

// Metadata returns the run metadata document.
func (c *OutputContainer) Metadata() (map[string]any, error) {
	var meta map[string]any
	if err := c.Dictionary("metadata", &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// SetIMT stores the mean and standard deviation grids of an intensity
// measure for one component, replacing any previous entry.
func (c *OutputContainer) SetIMT(imtName, component string, data *IMTData) error {
	if component == "" {
		component = DefaultComponent
	}
	if data == nil || data.Mean == nil || data.Std == nil {
		return fmt.Errorf("imt %s needs both a mean and a standard deviation grid", imtName)
	}
	if data.Mean.GeoDict != data.Std.GeoDict {
		return fmt.Errorf("imt %s mean and std grids disagree on extent", imtName)
	}

	if err := c.DropIMT(imtName, component); err != nil {
		return err
	}
	ctx := context.Background()
	for _, layer := range []struct {
		kind string
		g    *grid.Grid2D
		meta map[string]any
	}{
		{"mean", data.Mean, data.MeanMetadata},
		{"std", data.Std, data.StdMetadata},
	} {
		gd, err := yaml.Marshal(layer.g.GeoDict)
		if err != nil {
			return err
		}
		var meta []byte
		if layer.meta != nil {
			if meta, err = yaml.Marshal(layer.meta); err != nil {
				return err
			}
		}
		m := &datasetModel{
			IMT:       imtName,
			Component: component,
			Kind:      layer.kind,
			GeoDict:   string(gd),
			Metadata:  string(meta),
			Data:      c.enc.EncodeAll(layer.g.Marshal(), nil),
		}
		if _, err := c.bun.NewInsert().Model(m).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// IMT returns the stored grids of an intensity measure.
func (c *OutputContainer) IMT(imtName, component string) (*IMTData, error) {
	if component == "" {
		component = DefaultComponent
	}
	var rows []datasetModel
	err := c.bun.NewSelect().Model(&rows).
		Where("imt = ?", imtName).
		Where("component = ?", component).
		Scan(context.Background())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("container has no %s grids for component %s", imtName, component)
	}

	out := &IMTData{}
	for _, row := range rows {
		var gd grid.GeoDict
		if err := yaml.Unmarshal([]byte(row.GeoDict), &gd); err != nil {
			return nil, err
		}
		raw, err := c.dec.DecodeAll(row.Data, nil)
		if err != nil {
			return nil, err
		}
		g, err := grid.Unmarshal(gd, raw)
		if err != nil {
			return nil, err
		}
		var meta map[string]any
		if row.Metadata != "" {
			if err := yaml.Unmarshal([]byte(row.Metadata), &meta); err != nil {
				return nil, err
			}
		}
		switch row.Kind {
		case "mean":
			out.Mean, out.MeanMetadata = g, meta
		case "std":
			out.Std, out.StdMetadata = g, meta
		default:
			return nil, fmt.Errorf("container holds unknown layer kind %q", row.Kind)
		}
	}
	if out.Mean == nil || out.Std == nil {
		return nil, fmt.Errorf("container entry for %s/%s is incomplete", imtName, component)
	}
	return out, nil
}

// IMTs lists the intensity measures stored for a component.
func (c *OutputContainer) IMTs(component string) ([]string, error) {
	if component == "" {
		component = DefaultComponent
	}
	var names []string
	err := c.bun.NewSelect().Model((*datasetModel)(nil)).
		ColumnExpr("DISTINCT imt").
		Where("component = ?", component).
		OrderExpr("imt ASC").
		Scan(context.Background(), &names)
	return names, err
}

// Components lists the components stored for an intensity measure.
func (c *OutputContainer) Components(imtName string) ([]string, error) {
	var comps []string
	err := c.bun.NewSelect().Model((*datasetModel)(nil)).
		ColumnExpr("DISTINCT component").
		Where("imt = ?", imtName).
		OrderExpr("component ASC").
		Scan(context.Background(), &comps)
	return comps, err
}

// DropIMT removes the grids of an intensity measure for a component.
func (c *OutputContainer) DropIMT(imtName, component string) error {
	if component == "" {
		component = DefaultComponent
	}
	_, err := c.bun.NewDelete().Model((*datasetModel)(nil)).
		Where("imt = ?", imtName).
		Where("component = ?", component).
		Exec(context.Background())
	return err
}
