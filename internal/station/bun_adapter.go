// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package station

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/uptrace/bun"

	"github.com/seisio/shakelib/internal/imt"
	"github.com/seisio/shakelib/internal/model"
)

// StationModel maps the `station` table for Bun queries.
type StationModel struct {
	bun.BaseModel `bun:"table:station"`
	ID            string          `bun:"id,pk"`
	Network       string          `bun:"network"`
	Code          string          `bun:"code"`
	Name          sql.NullString  `bun:"name"`
	Lat           float64         `bun:"lat"`
	Lon           float64         `bun:"lon"`
	Elev          sql.NullFloat64 `bun:"elev"`
	Vs30          sql.NullFloat64 `bun:"vs30"`
	Instrumented  bool            `bun:"instrumented"`
}

// IMTModel maps the `imt` lookup table.
type IMTModel struct {
	bun.BaseModel `bun:"table:imt"`
	ID            int    `bun:"id,pk,autoincrement"`
	IMTType       string `bun:"imt_type"`
}

// AmpModel maps the `amp` table.
type AmpModel struct {
	bun.BaseModel `bun:"table:amp"`
	ID            int             `bun:"id,pk,autoincrement"`
	StationID     string          `bun:"station_id"`
	IMTID         int             `bun:"imt_id"`
	Channel       string          `bun:"original_channel"`
	Orientation   string          `bun:"orientation"`
	Amp           sql.NullFloat64 `bun:"amp"`
	Uncertainty   sql.NullFloat64 `bun:"uncertainty"`
	Flag          string          `bun:"flag"`
}

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

// bunStore implements the full Store interface on top of a bun.DB. All
// three backends share it; engine-specific behavior lives in the wrapper
// types below.
type bunStore struct {
	db  *sql.DB
	bun *bun.DB
}

// Stations returns the instrumented or macroseismic stations, ordered by id.
func (s *bunStore) Stations(instrumented bool) ([]model.Station, error) {
	ctx := context.Background()
	var rows []StationModel
	err := s.bun.NewSelect().Model(&rows).
		Where("instrumented = ?", instrumented).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	stations := make([]model.Station, 0, len(rows))
	for _, r := range rows {
		stations = append(stations, stationModelToModel(r))
	}
	return stations, nil
}

// StationCount reports how many stations of the given kind are stored.
func (s *bunStore) StationCount(instrumented bool) (int, error) {
	ctx := context.Background()
	return s.bun.NewSelect().Model((*StationModel)(nil)).
		Where("instrumented = ?", instrumented).
		Count(ctx)
}

// GetStation looks up a single station by its network.code id.
func (s *bunStore) GetStation(id string) (*model.Station, error) {
	ctx := context.Background()
	var row StationModel
	err := s.bun.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m := stationModelToModel(row)
	return &m, nil
}

// IMTTypes returns the IMT names present in the database mapped to their ids.
func (s *bunStore) IMTTypes() (map[string]int, error) {
	ctx := context.Background()
	var rows []IMTModel
	if err := s.bun.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, err
	}
	types := make(map[string]int, len(rows))
	for _, r := range rows {
		types[r.IMTType] = r.ID
	}
	return types, nil
}

// AddIMTTypes inserts any IMT names not already present.
func (s *bunStore) AddIMTTypes(names []string) error {
	if len(names) == 0 {
		return nil
	}
	ctx := context.Background()
	existing, err := s.IMTTypes()
	if err != nil {
		return err
	}
	var toAdd []IMTModel
	for _, name := range names {
		if _, ok := existing[name]; !ok {
			toAdd = append(toAdd, IMTModel{IMTType: name})
		}
	}
	if len(toAdd) == 0 {
		return nil
	}
	_, err = s.bun.NewInsert().Model(&toAdd).Exec(ctx)
	return err
}

// Amplitudes returns all amplitudes recorded for a station.
func (s *bunStore) Amplitudes(stationID string) ([]model.Amplitude, error) {
	ctx := context.Background()
	var rows []struct {
		ID          int             `bun:"id"`
		StationID   string          `bun:"station_id"`
		IMTType     string          `bun:"imt_type"`
		Channel     string          `bun:"original_channel"`
		Orientation string          `bun:"orientation"`
		Amp         sql.NullFloat64 `bun:"amp"`
		Uncertainty sql.NullFloat64 `bun:"uncertainty"`
		Flag        string          `bun:"flag"`
	}
	err := s.bun.NewSelect().
		ColumnExpr("a.id, a.station_id, a.original_channel, a.orientation, a.amp, a.uncertainty, a.flag").
		ColumnExpr("i.imt_type AS imt_type").
		TableExpr("amp AS a").
		Join("JOIN imt AS i ON i.id = a.imt_id").
		Where("a.station_id = ?", stationID).
		OrderExpr("i.imt_type ASC, a.original_channel ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	amps := make([]model.Amplitude, 0, len(rows))
	for _, r := range rows {
		a := model.Amplitude{
			ID:          r.ID,
			StationID:   r.StationID,
			IMT:         r.IMTType,
			Channel:     r.Channel,
			Orientation: r.Orientation,
			Flag:        r.Flag,
		}
		if r.Amp.Valid {
			a.Value = r.Amp.Float64
		} else {
			a.Null = true
		}
		if r.Uncertainty.Valid {
			a.Uncertainty = r.Uncertainty.Float64
		}
		amps = append(amps, a)
	}
	return amps, nil
}

// AmplitudeKeys returns the identity keys (station.imt.channel) of all
// stored amplitudes, used to suppress duplicate inserts on merge.
func (s *bunStore) AmplitudeKeys() (map[string]bool, error) {
	ctx := context.Background()
	var rows []AmpModel
	err := s.bun.NewSelect().Model(&rows).
		Column("station_id", "imt_id", "original_channel").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(rows))
	for _, r := range rows {
		keys[ampKey(r.StationID, r.IMTID, r.Channel)] = true
	}
	return keys, nil
}

// Merge inserts the stations, IMT types and amplitudes from a parsed set
// of input records. Stations and amplitudes already present are left
// untouched. Raw amplitudes are converted to storage units here: PGV to
// ln(cm/s), accelerations from %g to ln(g); MMI is stored as-is.
// Missing or non-positive values are stored NULL with flag "G".
func (s *bunStore) Merge(records map[string]*Record, imts map[string]bool) error {
	ctx := context.Background()

	var imtNames []string
	for name := range imts {
		imtNames = append(imtNames, name)
	}
	if err := s.AddIMTTypes(imtNames); err != nil {
		return fmt.Errorf("failed to add IMT types: %w", err)
	}
	imtHash, err := s.IMTTypes()
	if err != nil {
		return err
	}

	// Insert any stations not yet present.
	var existingIDs []string
	if err := s.bun.NewSelect().Model((*StationModel)(nil)).
		Column("id").Scan(ctx, &existingIDs); err != nil {
		return err
	}
	staSet := make(map[string]bool, len(existingIDs))
	for _, id := range existingIDs {
		staSet[id] = true
	}

	var stationRows []StationModel
	// Deterministic insert order keeps the sqlite dumps reproducible.
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if staSet[id] {
			continue
		}
		staSet[id] = true
		rec := records[id]
		row := StationModel{
			ID:           rec.Station.ID,
			Network:      rec.Station.Network,
			Code:         rec.Station.Code,
			Lat:          rec.Station.Lat,
			Lon:          rec.Station.Lon,
			Instrumented: rec.Station.Instrumented,
		}
		if rec.Station.Name != "" {
			row.Name = sql.NullString{String: rec.Station.Name, Valid: true}
		}
		if rec.HasElev {
			row.Elev = sql.NullFloat64{Float64: rec.Station.Elev, Valid: true}
		}
		if rec.HasVs30 {
			row.Vs30 = sql.NullFloat64{Float64: rec.Station.Vs30, Valid: true}
		}
		stationRows = append(stationRows, row)
	}
	if len(stationRows) > 0 {
		if _, err := s.bun.NewInsert().Model(&stationRows).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert stations: %w", err)
		}
	}

	ampSet, err := s.AmplitudeKeys()
	if err != nil {
		return err
	}

	var ampRows []AmpModel
	for _, id := range ids {
		rec := records[id]
		for channel, pgms := range rec.Comps {
			orient := orientation(channel)
			obsNames := make([]string, 0, len(pgms))
			for name := range pgms {
				obsNames = append(obsNames, name)
			}
			sort.Strings(obsNames)
			for _, imtType := range obsNames {
				obs := pgms[imtType]
				// Macroseismic stations carry only MMI.
				if !rec.Station.Instrumented && imtType != "MMI" {
					continue
				}
				imtID, ok := imtHash[imtType]
				if !ok {
					return fmt.Errorf("IMT %q missing from lookup table", imtType)
				}
				key := ampKey(id, imtID, channel)
				if ampSet[key] {
					continue
				}
				ampSet[key] = true

				row := AmpModel{
					StationID:   id,
					IMTID:       imtID,
					Channel:     channel,
					Orientation: orient,
					Flag:        obs.Flag,
				}
				value := obs.Value
				switch {
				case math.IsNaN(value) || value <= 0:
					row.Flag = "G"
				case imtType == "MMI":
					row.Amp = sql.NullFloat64{Float64: value, Valid: true}
				case imtType == "PGV":
					row.Amp = sql.NullFloat64{Float64: math.Log(value), Valid: true}
				default:
					row.Amp = sql.NullFloat64{Float64: math.Log(value / 100.0), Valid: true}
				}
				ampRows = append(ampRows, row)
			}
		}
	}
	if len(ampRows) > 0 {
		if _, err := s.bun.NewInsert().Model(&ampRows).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert amplitudes: %w", err)
		}
	}
	return nil
}

// Table builds the flattened observation table for either the
// instrumented or the macroseismic stations. Each IMT column holds the
// per-station peak over unflagged, non-vertical amplitudes.
func (s *bunStore) Table(instrumented bool) (*Table, error) {
	stations, err := s.Stations(instrumented)
	if err != nil {
		return nil, err
	}

	types, err := s.IMTTypes()
	if err != nil {
		return nil, err
	}
	var imts []string
	for name := range types {
		// MMI belongs to the macroseismic view, everything else to the
		// instrumented view.
		if (name == "MMI") == instrumented {
			continue
		}
		imts = append(imts, name)
	}
	imt.Sort(imts)

	t := &Table{
		Stations: stations,
		IMTs:     imts,
		Values:   make(map[string][]float64, len(imts)),
	}
	for _, name := range imts {
		col := make([]float64, len(stations))
		for i := range col {
			col[i] = math.NaN()
		}
		t.Values[name] = col
	}
	rowIdx := make(map[string]int, len(stations))
	for i, sta := range stations {
		rowIdx[sta.ID] = i
	}

	ctx := context.Background()
	var rows []struct {
		Amp       float64 `bun:"amp"`
		IMTType   string  `bun:"imt_type"`
		StationID string  `bun:"station_id"`
	}
	err = s.bun.NewSelect().
		ColumnExpr("a.amp AS amp").
		ColumnExpr("i.imt_type AS imt_type").
		ColumnExpr("a.station_id AS station_id").
		TableExpr("amp AS a").
		Join("JOIN station AS s ON s.id = a.station_id").
		Join("JOIN imt AS i ON i.id = a.imt_id").
		Where("a.flag = '0'").
		Where("s.instrumented = ?", instrumented).
		Where("a.orientation NOT IN ('Z', 'U')").
		Where("a.amp IS NOT NULL").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		idx, ok := rowIdx[r.StationID]
		if !ok {
			continue
		}
		col, ok := t.Values[r.IMTType]
		if !ok {
			continue
		}
		if math.IsNaN(col[idx]) || col[idx] < r.Amp {
			col[idx] = r.Amp
		}
	}
	return t, nil
}

// LogAction appends an entry to the audit log.
func (s *bunStore) LogAction(action, details string) error {
	ctx := context.Background()
	_, err := s.bun.NewInsert().Model(&AuditLogModel{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Action:    action,
		Details:   details,
	}).Exec(ctx)
	return err
}

// AuditLog returns all audit entries, oldest first.
func (s *bunStore) AuditLog() ([]model.AuditLogEntry, error) {
	ctx := context.Background()
	var rows []AuditLogModel
	if err := s.bun.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	entries := make([]model.AuditLogEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.AuditLogEntry{
			ID:        r.ID,
			Timestamp: r.Timestamp,
			Action:    r.Action,
			Details:   r.Details,
		})
	}
	return entries, nil
}

// Close releases the underlying database handles.
func (s *bunStore) Close() error {
	return s.bun.Close()
}

func ampKey(stationID string, imtID int, channel string) string {
	return fmt.Sprintf("%s.%d.%s", stationID, imtID, channel)
}

func stationModelToModel(r StationModel) model.Station {
	m := model.Station{
		ID:           r.ID,
		Network:      r.Network,
		Code:         r.Code,
		Lat:          r.Lat,
		Lon:          r.Lon,
		Instrumented: r.Instrumented,
	}
	if r.Name.Valid {
		m.Name = r.Name.String
	}
	if r.Elev.Valid {
		m.Elev = r.Elev.Float64
	}
	if r.Vs30.Valid {
		m.Vs30 = r.Vs30.Float64
	}
	return m
}

// orientation returns a character representing the orientation of a
// channel: N, E, Z, H (horizontal) or U (unknown). The final character of
// a seed channel name (e.g. "HNZ") is assumed to be the orientation; mmi
// is arbitrarily horizontal, as is the "UNK" channel.
func orientation(channel string) string {
	if channel == "mmi" {
		return "H"
	}
	if channel == "" {
		return "U"
	}
	switch channel[len(channel)-1] {
	case 'N', 'E', 'Z':
		return string(channel[len(channel)-1])
	case 'K':
		return "H"
	default:
		return "U"
	}
}
