package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
)

// Schema creates the tables PostgresSource reads. Every row carries its
// site id and an ordinal so loads preserve export order.
const Schema = `
CREATE TABLE IF NOT EXISTS twin_sites (
	id   text PRIMARY KEY,
	name text NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS twin_buildings (
	site_id   text NOT NULL,
	ord       int  NOT NULL,
	id        text NOT NULL,
	name      text NOT NULL DEFAULT '',
	parent_id text NOT NULL DEFAULT '',
	transform jsonb NOT NULL DEFAULT '{}',
	PRIMARY KEY (site_id, id)
);
CREATE TABLE IF NOT EXISTS twin_floors (
	site_id     text NOT NULL,
	ord         int  NOT NULL,
	id          text NOT NULL,
	name        text NOT NULL DEFAULT '',
	building_id text NOT NULL DEFAULT '',
	level       int  NOT NULL DEFAULT 0,
	elevation   double precision NOT NULL DEFAULT 0,
	transform   jsonb NOT NULL DEFAULT '{}',
	PRIMARY KEY (site_id, id)
);
CREATE TABLE IF NOT EXISTS twin_rooms (
	site_id    text NOT NULL,
	ord        int  NOT NULL,
	id         text NOT NULL,
	name       text NOT NULL DEFAULT '',
	floor_id   text NOT NULL DEFAULT '',
	transform  jsonb NOT NULL DEFAULT '{}',
	dimensions jsonb NOT NULL DEFAULT '{}',
	PRIMARY KEY (site_id, id)
);
CREATE TABLE IF NOT EXISTS twin_racks (
	site_id        text NOT NULL,
	ord            int  NOT NULL,
	id             text NOT NULL,
	name           text NOT NULL DEFAULT '',
	room_id        text NOT NULL DEFAULT '',
	u_height       int  NOT NULL DEFAULT 42,
	transform      jsonb NOT NULL DEFAULT '{}',
	power_kw_limit double precision NOT NULL DEFAULT 0,
	PRIMARY KEY (site_id, id)
);
CREATE TABLE IF NOT EXISTS twin_devices (
	site_id              text NOT NULL,
	ord                  int  NOT NULL,
	id                   text NOT NULL,
	name                 text NOT NULL DEFAULT '',
	rack_id              text NOT NULL DEFAULT '',
	device_type_id       text NOT NULL DEFAULT '',
	logical_equipment_id text NOT NULL DEFAULT '',
	u_start              int  NOT NULL DEFAULT 0,
	u_height             int  NOT NULL DEFAULT 0,
	status               text NOT NULL DEFAULT 'EXISTING_RETAINED',
	power_kw             double precision NOT NULL DEFAULT 0,
	vertical_mount       boolean NOT NULL DEFAULT false,
	PRIMARY KEY (site_id, id)
);
CREATE TABLE IF NOT EXISTS twin_device_types (
	id        text PRIMARY KEY,
	name      text NOT NULL DEFAULT '',
	category  text NOT NULL DEFAULT 'UNKNOWN',
	u_height  int  NOT NULL DEFAULT 1,
	power_kw  double precision NOT NULL DEFAULT 0,
	model_ref text NOT NULL DEFAULT ''
);
`

// PostgresSource reads one site from the twin_* tables.
type PostgresSource struct {
	pool   *pgxpool.Pool
	SiteID string
}

// OpenPostgres connects and verifies connectivity early.
func OpenPostgres(ctx context.Context, databaseURL, siteID string) (*PostgresSource, error) {
	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &PostgresSource{pool: p, SiteID: siteID}, nil
}

func (s *PostgresSource) Describe() string { return "postgres:" + s.SiteID }

// Close releases the pool.
func (s *PostgresSource) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Migrate creates the schema if needed.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Load reads the site and the whole device type catalog.
func (s *PostgresSource) Load(ctx context.Context) (*Snapshot, error) {
	cfg := &facility.SceneConfig{SiteID: s.SiteID}
	err := s.pool.QueryRow(ctx, `SELECT name FROM twin_sites WHERE id = $1`, s.SiteID).Scan(&cfg.SiteName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: site %q", ErrNotFound, s.SiteID)
	}
	if err != nil {
		return nil, fmt.Errorf("query site: %w", err)
	}

	if cfg.Buildings, err = queryAll(ctx, s.pool,
		`SELECT id, name, parent_id, transform FROM twin_buildings WHERE site_id = $1 ORDER BY ord`,
		s.SiteID, func(r pgx.Rows, b *facility.Building) error {
			return r.Scan(&b.ID, &b.Name, &b.SiteID, &b.Transform)
		}); err != nil {
		return nil, fmt.Errorf("query buildings: %w", err)
	}
	if cfg.Floors, err = queryAll(ctx, s.pool,
		`SELECT id, name, building_id, level, elevation, transform FROM twin_floors WHERE site_id = $1 ORDER BY ord`,
		s.SiteID, func(r pgx.Rows, f *facility.Floor) error {
			return r.Scan(&f.ID, &f.Name, &f.BuildingID, &f.Level, &f.Elevation, &f.Transform)
		}); err != nil {
		return nil, fmt.Errorf("query floors: %w", err)
	}
	if cfg.Rooms, err = queryAll(ctx, s.pool,
		`SELECT id, name, floor_id, transform, dimensions FROM twin_rooms WHERE site_id = $1 ORDER BY ord`,
		s.SiteID, func(r pgx.Rows, rm *facility.Room) error {
			return r.Scan(&rm.ID, &rm.Name, &rm.FloorID, &rm.Transform, &rm.Dimensions)
		}); err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	if cfg.Racks, err = queryAll(ctx, s.pool,
		`SELECT id, name, room_id, u_height, transform, power_kw_limit FROM twin_racks WHERE site_id = $1 ORDER BY ord`,
		s.SiteID, func(r pgx.Rows, rk *facility.Rack) error {
			return r.Scan(&rk.ID, &rk.Name, &rk.RoomID, &rk.UHeight, &rk.Transform, &rk.PowerKwLimit)
		}); err != nil {
		return nil, fmt.Errorf("query racks: %w", err)
	}
	if cfg.Devices, err = queryAll(ctx, s.pool,
		`SELECT id, name, rack_id, device_type_id, logical_equipment_id, u_start, u_height,
		        status, power_kw, vertical_mount
		   FROM twin_devices WHERE site_id = $1 ORDER BY ord`,
		s.SiteID, func(r pgx.Rows, d *facility.Device) error {
			var status string
			if err := r.Scan(&d.ID, &d.Name, &d.RackID, &d.DeviceTypeID, &d.LogicalEquipmentID,
				&d.UStart, &d.UHeight, &status, &d.PowerKw, &d.VerticalMount); err != nil {
				return err
			}
			return d.Status.UnmarshalText([]byte(status))
		}); err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}

	types, err := queryAll(ctx, s.pool,
		`SELECT id, name, category, u_height, power_kw, model_ref FROM twin_device_types ORDER BY id`,
		nil, func(r pgx.Rows, dt *facility.DeviceType) error {
			var cat string
			if err := r.Scan(&dt.ID, &dt.Name, &cat, &dt.UHeight, &dt.PowerKw, &dt.ModelRef); err != nil {
				return err
			}
			return dt.Category.UnmarshalText([]byte(cat))
		})
	if err != nil {
		return nil, fmt.Errorf("query device types: %w", err)
	}
	return &Snapshot{Config: cfg, Catalog: facility.NewCatalog(types)}, nil
}

func queryAll[T any](ctx context.Context, pool *pgxpool.Pool, sql string, arg any, scan func(pgx.Rows, *T) error) ([]T, error) {
	var args []any
	if arg != nil {
		args = append(args, arg)
	}
	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		var v T
		if err := scan(rows, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Save replaces the site's rows with cfg and upserts the catalog in one
// transaction.
func (s *PostgresSource) Save(ctx context.Context, cfg *facility.SceneConfig, catalog facility.Catalog) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	site := s.SiteID
	batch := &pgx.Batch{}
	for _, table := range []string{"twin_devices", "twin_racks", "twin_rooms", "twin_floors", "twin_buildings"} {
		batch.Queue(`DELETE FROM `+table+` WHERE site_id = $1`, site)
	}
	batch.Queue(`INSERT INTO twin_sites (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, site, cfg.SiteName)
	for i, b := range cfg.Buildings {
		batch.Queue(`INSERT INTO twin_buildings (site_id, ord, id, name, parent_id, transform)
			VALUES ($1, $2, $3, $4, $5, $6)`, site, i, b.ID, b.Name, b.SiteID, b.Transform)
	}
	for i, f := range cfg.Floors {
		batch.Queue(`INSERT INTO twin_floors (site_id, ord, id, name, building_id, level, elevation, transform)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, site, i, f.ID, f.Name, f.BuildingID, f.Level, f.Elevation, f.Transform)
	}
	for i, r := range cfg.Rooms {
		batch.Queue(`INSERT INTO twin_rooms (site_id, ord, id, name, floor_id, transform, dimensions)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`, site, i, r.ID, r.Name, r.FloorID, r.Transform, r.Dimensions)
	}
	for i, r := range cfg.Racks {
		batch.Queue(`INSERT INTO twin_racks (site_id, ord, id, name, room_id, u_height, transform, power_kw_limit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, site, i, r.ID, r.Name, r.RoomID, r.UHeight, r.Transform, r.PowerKwLimit)
	}
	for i, d := range cfg.Devices {
		batch.Queue(`INSERT INTO twin_devices (site_id, ord, id, name, rack_id, device_type_id,
				logical_equipment_id, u_start, u_height, status, power_kw, vertical_mount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			site, i, d.ID, d.Name, d.RackID, d.DeviceTypeID, d.LogicalEquipmentID,
			d.UStart, d.UHeight, string(d.Status), d.PowerKw, d.VerticalMount)
	}
	for _, dt := range catalog.Types() {
		batch.Queue(`INSERT INTO twin_device_types (id, name, category, u_height, power_kw, model_ref)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category,
				u_height = EXCLUDED.u_height, power_kw = EXCLUDED.power_kw, model_ref = EXCLUDED.model_ref`,
			dt.ID, dt.Name, string(dt.Category), dt.UHeight, dt.PowerKw, dt.ModelRef)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("store: save statement %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
