package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/areascope/areascope/internal/db"
	"github.com/areascope/areascope/internal/model"
)

// PostgresStore implements Store using pgxpool. Polygons are stored as EWKB
// so a PostGIS-enabled database can query them directly.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"save_area": `INSERT INTO areas (id, name, color, polygon, area_m2, seq, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, (SELECT COUNT(*) FROM areas), $7)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, color = EXCLUDED.color,
			polygon = EXCLUDED.polygon, area_m2 = EXCLUDED.area_m2, seq = EXCLUDED.seq`,
	"get_area":        `SELECT id, name, color, polygon, area_m2, seq, created_at FROM areas WHERE id = $1`,
	"list_areas":      `SELECT id, name, color, polygon, area_m2, seq, created_at FROM areas ORDER BY position, seq`,
	"delete_area":     `DELETE FROM areas WHERE id = $1`,
	"delete_features": `DELETE FROM area_features WHERE area_id = $1 AND layer_id = $2`,
	"load_features":   `SELECT layer_id, feature FROM area_features WHERE area_id = $1 ORDER BY layer_id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS areas (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	color      JSONB NOT NULL,
	polygon    BYTEA NOT NULL,
	area_m2    DOUBLE PRECISION NOT NULL,
	seq        INTEGER NOT NULL,
	position   INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS area_features (
	area_id  TEXT NOT NULL REFERENCES areas(id) ON DELETE CASCADE,
	layer_id TEXT NOT NULL,
	feature  JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_areas_position ON areas(position);
CREATE INDEX IF NOT EXISTS idx_area_features_area_layer ON area_features(area_id, layer_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveArea(ctx context.Context, area *model.ComparisonArea) error {
	colorJSON, err := json.Marshal(area.Color)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal color")
	}
	polyWKB, err := encodeEWKB(area.Polygon)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, "save_area",
		area.ID, area.Name, colorJSON, polyWKB, area.AreaM2, area.Seq, area.CreatedAt.UTC())
	return eris.Wrapf(err, "postgres: save area %s", area.ID)
}

func (s *PostgresStore) GetArea(ctx context.Context, id string) (*model.ComparisonArea, error) {
	row := s.pool.QueryRow(ctx, "get_area", id)
	return scanPgArea(row)
}

func (s *PostgresStore) ListAreas(ctx context.Context) ([]*model.ComparisonArea, error) {
	rows, err := s.pool.Query(ctx, "list_areas")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list areas")
	}
	defer rows.Close()

	var areas []*model.ComparisonArea
	for rows.Next() {
		a, err := scanPgArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, eris.Wrap(rows.Err(), "postgres: list areas iterate")
}

func (s *PostgresStore) DeleteArea(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "delete_area", id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete area %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveOrder writes all manual-order positions in one transactional bulk
// upsert. Every id must already have an areas row; ids here only ever come
// from areas saved through SaveArea.
func (s *PostgresStore) SaveOrder(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(ids))
	for pos, id := range ids {
		rows = append(rows, []any{id, pos})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "areas",
		Columns:      []string{"id", "position"},
		ConflictKeys: []string{"id"},
	}, rows)
	return eris.Wrap(err, "postgres: save order")
}

// SaveLayerFeatures replaces the snapshot for one layer of one area. The
// rows go in via COPY; snapshots for a dense layer can be large.
func (s *PostgresStore) SaveLayerFeatures(ctx context.Context, areaID, layerID string, fc *geojson.FeatureCollection) error {
	if _, err := s.pool.Exec(ctx, "delete_features", areaID, layerID); err != nil {
		return eris.Wrapf(err, "postgres: clear features %s/%s", areaID, layerID)
	}

	rows := make([][]any, 0, len(fc.Features))
	for _, f := range fc.Features {
		data, err := f.MarshalJSON()
		if err != nil {
			return eris.Wrap(err, "postgres: marshal feature")
		}
		rows = append(rows, []any{areaID, layerID, data})
	}

	_, err := db.CopyFrom(ctx, s.pool, "area_features", []string{"area_id", "layer_id", "feature"}, rows)
	return err
}

func (s *PostgresStore) LoadLayerFeatures(ctx context.Context, areaID string) (map[string]*geojson.FeatureCollection, error) {
	rows, err := s.pool.Query(ctx, "load_features", areaID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load features %s", areaID)
	}
	defer rows.Close()

	out := make(map[string]*geojson.FeatureCollection)
	for rows.Next() {
		var layerID string
		var data []byte
		if err := rows.Scan(&layerID, &data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feature")
		}
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal feature %s/%s", areaID, layerID)
		}
		if out[layerID] == nil {
			out[layerID] = geojson.NewFeatureCollection()
		}
		out[layerID].Append(f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: load features iterate")
}

func scanPgArea(row pgx.Row) (*model.ComparisonArea, error) {
	var a model.ComparisonArea
	var colorJSON []byte
	var polyWKB []byte

	err := row.Scan(&a.ID, &a.Name, &colorJSON, &polyWKB, &a.AreaM2, &a.Seq, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan area")
	}

	if err := json.Unmarshal(colorJSON, &a.Color); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal color")
	}
	poly, err := decodeEWKB(polyWKB)
	if err != nil {
		return nil, err
	}
	a.Polygon = poly
	return &a, nil
}
