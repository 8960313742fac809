package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/areascope/areascope/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Polygons are kept
// as GeoJSON text so the file stays inspectable with plain sqlite tooling.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS areas (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	color      TEXT NOT NULL,
	polygon    TEXT NOT NULL,
	area_m2    REAL NOT NULL,
	seq        INTEGER NOT NULL,
	position   INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS area_features (
	area_id  TEXT NOT NULL REFERENCES areas(id) ON DELETE CASCADE,
	layer_id TEXT NOT NULL,
	features TEXT NOT NULL,
	PRIMARY KEY (area_id, layer_id)
);

CREATE INDEX IF NOT EXISTS idx_areas_position ON areas(position);
CREATE INDEX IF NOT EXISTS idx_area_features_area_id ON area_features(area_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveArea(ctx context.Context, area *model.ComparisonArea) error {
	colorJSON, err := json.Marshal(area.Color)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal color")
	}
	polyJSON, err := json.Marshal(geojson.NewGeometry(area.Polygon))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal polygon")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO areas (id, name, color, polygon, area_m2, seq, position, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, (SELECT COUNT(*) FROM areas), ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, color = excluded.color,
			polygon = excluded.polygon, area_m2 = excluded.area_m2, seq = excluded.seq`,
		area.ID, area.Name, string(colorJSON), string(polyJSON),
		area.AreaM2, area.Seq, area.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save area %s", area.ID)
}

func (s *SQLiteStore) GetArea(ctx context.Context, id string) (*model.ComparisonArea, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, color, polygon, area_m2, seq, created_at FROM areas WHERE id = ?`, id)
	return scanArea(row)
}

func (s *SQLiteStore) ListAreas(ctx context.Context) ([]*model.ComparisonArea, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, color, polygon, area_m2, seq, created_at FROM areas ORDER BY position, seq`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list areas")
	}
	defer rows.Close()

	var areas []*model.ComparisonArea
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, eris.Wrap(rows.Err(), "sqlite: list areas iterate")
}

func (s *SQLiteStore) DeleteArea(ctx context.Context, id string) error {
	// Explicit cleanup; the foreign_keys pragma is per-connection and the
	// pool may hand out connections that never saw it.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM area_features WHERE area_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete area features %s", id)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM areas WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete area %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SaveOrder(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin order tx")
	}
	defer tx.Rollback()

	for pos, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE areas SET position = ? WHERE id = ?`, pos, id); err != nil {
			return eris.Wrapf(err, "sqlite: set position for %s", id)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit order")
}

func (s *SQLiteStore) SaveLayerFeatures(ctx context.Context, areaID, layerID string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal features")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO area_features (area_id, layer_id, features) VALUES (?, ?, ?)
		 ON CONFLICT (area_id, layer_id) DO UPDATE SET features = excluded.features`,
		areaID, layerID, string(data),
	)
	return eris.Wrapf(err, "sqlite: save features %s/%s", areaID, layerID)
}

func (s *SQLiteStore) LoadLayerFeatures(ctx context.Context, areaID string) (map[string]*geojson.FeatureCollection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT layer_id, features FROM area_features WHERE area_id = ?`, areaID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load features %s", areaID)
	}
	defer rows.Close()

	out := make(map[string]*geojson.FeatureCollection)
	for rows.Next() {
		var layerID, data string
		if err := rows.Scan(&layerID, &data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan features")
		}
		fc, err := geojson.UnmarshalFeatureCollection([]byte(data))
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal features %s/%s", areaID, layerID)
		}
		out[layerID] = fc
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load features iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanArea(row scannable) (*model.ComparisonArea, error) {
	var a model.ComparisonArea
	var colorJSON, polyJSON string

	err := row.Scan(&a.ID, &a.Name, &colorJSON, &polyJSON, &a.AreaM2, &a.Seq, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan area")
	}

	if err := json.Unmarshal([]byte(colorJSON), &a.Color); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal color")
	}
	g, err := geojson.UnmarshalGeometry([]byte(polyJSON))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal polygon")
	}
	poly, ok := g.Geometry().(orb.Polygon)
	if !ok {
		return nil, eris.Errorf("sqlite: area %s polygon has type %s", a.ID, g.Type)
	}
	a.Polygon = poly
	return &a, nil
}
