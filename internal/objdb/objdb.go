// Package objdb is the sqlite-backed trajectory store the trigger engine
// searches. Objects, their per-frame bounding boxes and the camera's
// processing-size history live in three tables; the store implements
// trigger.DataManager over them.
package objdb

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/tripline/internal/geom"
	"github.com/banshee-data/tripline/internal/monitoring"
	"github.com/banshee-data/tripline/internal/trigger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the trajectory database. The min-size, target and camera
// filters are shared mutable state, set and cleared around individual
// searches; a Store is not safe for concurrent use.
type Store struct {
	*sql.DB

	camLoc    string
	minHeight int
	targets   []trigger.Target
}

// Open opens (or creates) the trajectory database at path. Use ":memory:"
// for an in-memory database in tests. The schema is managed separately by
// Migrate.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open object db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &Store{DB: db}, nil
}

// Migrate brings the schema up to the latest embedded migration.
func (s *Store) Migrate() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (s *Store) MigrateDown() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version and dirty state.
// (0, false, nil) means no migrations have been applied yet.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// newMigrate builds a migrate instance over the embedded migrations. The
// instance is not closed; closing it would close the shared connection.
func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.DB, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// SetCameraFilter scopes all queries to one camera location. An empty
// location clears the scope.
func (s *Store) SetCameraFilter(camLoc string) {
	s.camLoc = camLoc
}

// AddObject creates a new tracked object and returns its uid.
func (s *Store) AddObject(camLoc, class string) (int64, error) {
	if class == "" {
		class = "object"
	}
	res, err := s.Exec(
		`INSERT INTO objects (cam_loc, type) VALUES (?, ?)`,
		camLoc, class,
	)
	if err != nil {
		return 0, fmt.Errorf("insert object: %w", err)
	}
	uid, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("object uid: %w", err)
	}
	return uid, nil
}

// AddBox records one bounding-box observation and folds it into the
// object's summary columns (time bounds, maximum height).
func (s *Store) AddBox(objID, frame, timeMs int64, box geom.BBox) error {
	_, err := s.Exec(
		`INSERT INTO motion (obj_uid, frame, time, x1, y1, x2, y2)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		objID, frame, timeMs, box.X1, box.Y1, box.X2, box.Y2,
	)
	if err != nil {
		return fmt.Errorf("insert box: %w", err)
	}

	_, err = s.Exec(
		`UPDATE objects SET
			time_start = CASE WHEN time_start < 0 OR ? < time_start THEN ? ELSE time_start END,
			time_stop  = MAX(time_stop, ?),
			max_height = MAX(max_height, ?)
		 WHERE uid = ?`,
		timeMs, timeMs, timeMs, box.Y2-box.Y1, objID,
	)
	if err != nil {
		return fmt.Errorf("update object summary: %w", err)
	}
	return nil
}

// AddProcSize records that a camera processed video at the given resolution
// over [firstMs, lastMs].
func (s *Store) AddProcSize(camLoc string, width, height int, firstMs, lastMs int64) error {
	_, err := s.Exec(
		`INSERT INTO proc_sizes (cam_loc, width, height, first_ms, last_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		camLoc, width, height, firstMs, lastMs,
	)
	if err != nil {
		return fmt.Errorf("insert proc size: %w", err)
	}
	return nil
}

// GetProcSizesMsRange returns the processing-size timeline overlapping
// [start, stop], oldest first.
func (s *Store) GetProcSizesMsRange(start, stop int64) ([]trigger.ProcSizeSpan, error) {
	query := `SELECT width, height, first_ms, last_ms FROM proc_sizes`
	var conds []string
	var args []any
	if s.camLoc != "" {
		conds = append(conds, `cam_loc = ?`)
		args = append(args, s.camLoc)
	}
	if start != trigger.TimeUnbounded {
		conds = append(conds, `last_ms >= ?`)
		args = append(args, start)
	}
	if stop != trigger.TimeUnbounded {
		conds = append(conds, `first_ms <= ?`)
		args = append(args, stop)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY first_ms`

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query proc sizes: %w", err)
	}
	defer rows.Close()

	var spans []trigger.ProcSizeSpan
	for rows.Next() {
		var sp trigger.ProcSizeSpan
		if err := rows.Scan(&sp.Width, &sp.Height, &sp.FirstMs, &sp.LastMs); err != nil {
			return nil, fmt.Errorf("scan proc size: %w", err)
		}
		spans = append(spans, sp)
	}
	return spans, rows.Err()
}

// objectConds returns the WHERE conditions implied by the active filters
// and an optional [start, stop] overlap requirement against the object's
// summary time bounds.
func (s *Store) objectConds(start, stop int64) (conds []string, args []any) {
	if start != trigger.TimeUnbounded {
		conds = append(conds, `time_stop >= ?`)
		args = append(args, start)
	}
	if stop != trigger.TimeUnbounded {
		conds = append(conds, `time_start <= ?`)
		args = append(args, stop)
	}
	if s.camLoc != "" {
		conds = append(conds, `cam_loc = ?`)
		args = append(args, s.camLoc)
	}
	if s.minHeight > 0 {
		conds = append(conds, `max_height >= ?`)
		args = append(args, s.minHeight)
	}
	if len(s.targets) > 0 {
		ph := make([]string, len(s.targets))
		for i, t := range s.targets {
			ph[i] = `?`
			args = append(args, t.Class)
		}
		conds = append(conds, `type IN (`+strings.Join(ph, `, `)+`)`)
	}
	return conds, args
}

// GetObjectsBetweenTimes implements trigger.DataManager.
func (s *Store) GetObjectsBetweenTimes(start, stop int64) ([]int64, error) {
	query := `SELECT uid FROM objects`
	conds, args := s.objectConds(start, stop)
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY uid`

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan object uid: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetObjectBboxesBetweenTimes implements trigger.DataManager.
func (s *Store) GetObjectBboxesBetweenTimes(objIDs []int64, start, stop int64) ([]trigger.BoxObservation, error) {
	if len(objIDs) == 0 {
		return nil, nil
	}

	ph := make([]string, len(objIDs))
	args := make([]any, 0, len(objIDs)+2)
	for i, id := range objIDs {
		ph[i] = `?`
		args = append(args, id)
	}
	query := `SELECT obj_uid, frame, time, x1, y1, x2, y2 FROM motion
		WHERE obj_uid IN (` + strings.Join(ph, `, `) + `)`
	if start != trigger.TimeUnbounded {
		query += ` AND time >= ?`
		args = append(args, start)
	}
	if stop != trigger.TimeUnbounded {
		query += ` AND time <= ?`
		args = append(args, stop)
	}
	query += ` ORDER BY obj_uid, time`

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query boxes: %w", err)
	}
	defer rows.Close()

	var out []trigger.BoxObservation
	for rows.Next() {
		var obs trigger.BoxObservation
		err := rows.Scan(&obs.ObjectID, &obs.Frame, &obs.TimeMs,
			&obs.Box.X1, &obs.Box.Y1, &obs.Box.X2, &obs.Box.Y2)
		if err != nil {
			return nil, fmt.Errorf("scan box: %w", err)
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

// GetFirstObjectBbox implements trigger.DataManager.
func (s *Store) GetFirstObjectBbox(objID int64) (geom.BBox, int64, int64, bool, error) {
	var box geom.BBox
	var frame, timeMs int64
	err := s.QueryRow(
		`SELECT frame, time, x1, y1, x2, y2 FROM motion
		 WHERE obj_uid = ? ORDER BY time LIMIT 1`, objID,
	).Scan(&frame, &timeMs, &box.X1, &box.Y1, &box.X2, &box.Y2)
	if errors.Is(err, sql.ErrNoRows) {
		return geom.BBox{}, -1, -1, false, nil
	}
	if err != nil {
		return geom.BBox{}, -1, -1, false, fmt.Errorf("query first box: %w", err)
	}
	return box, frame, timeMs, true, nil
}

// GetObjectFinalTime implements trigger.DataManager.
func (s *Store) GetObjectFinalTime(objID int64) (int64, int64, error) {
	var frame, timeMs int64
	err := s.QueryRow(
		`SELECT frame, time FROM motion
		 WHERE obj_uid = ? ORDER BY time DESC LIMIT 1`, objID,
	).Scan(&frame, &timeMs)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, -1, nil
	}
	if err != nil {
		return -1, -1, fmt.Errorf("query final time: %w", err)
	}
	return frame, timeMs, nil
}

// GetBboxAtFrame implements trigger.DataManager.
func (s *Store) GetBboxAtFrame(objID, frame int64) (geom.BBox, bool, error) {
	var box geom.BBox
	err := s.QueryRow(
		`SELECT x1, y1, x2, y2 FROM motion
		 WHERE obj_uid = ? AND frame = ? LIMIT 1`, objID, frame,
	).Scan(&box.X1, &box.Y1, &box.X2, &box.Y2)
	if errors.Is(err, sql.ErrNoRows) {
		return geom.BBox{}, false, nil
	}
	if err != nil {
		return geom.BBox{}, false, fmt.Errorf("query box at frame: %w", err)
	}
	return box, true, nil
}

// GetObjectStartTime implements trigger.DataManager.
func (s *Store) GetObjectStartTime(objID int64) (int64, error) {
	var timeMs int64
	err := s.QueryRow(
		`SELECT time FROM motion WHERE obj_uid = ? ORDER BY time LIMIT 1`, objID,
	).Scan(&timeMs)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("query start time: %w", err)
	}
	return timeMs, nil
}

// GetFrameAtTime implements trigger.DataManager. Observation times are not
// exact, so the lookup accepts a 10ms skew either way and prefers the
// closest row.
func (s *Store) GetFrameAtTime(objID, timeMs int64) (int64, error) {
	var frame int64
	err := s.QueryRow(
		`SELECT frame FROM motion
		 WHERE obj_uid = ? AND time BETWEEN ? AND ?
		 ORDER BY ABS(time - ?) LIMIT 1`,
		objID, timeMs-10, timeMs+10, timeMs,
	).Scan(&frame)
	if errors.Is(err, sql.ErrNoRows) {
		monitoring.Logf("objdb: no frame for object %d near t=%d", objID, timeMs)
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("query frame at time: %w", err)
	}
	return frame, nil
}

// GetObjectRangesBetweenTimes implements trigger.DataManager: for every
// object observed in the range (after filters), the first and last
// observation within it, with the camera location attached.
func (s *Store) GetObjectRangesBetweenTimes(start, stop int64) ([]trigger.Range, error) {
	query := `SELECT uid, cam_loc FROM objects`
	conds, args := s.objectConds(start, stop)
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY uid`

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query objects for ranges: %w", err)
	}
	defer rows.Close()

	type objRow struct {
		uid    int64
		camLoc string
	}
	var objs []objRow
	for rows.Next() {
		var o objRow
		if err := rows.Scan(&o.uid, &o.camLoc); err != nil {
			return nil, fmt.Errorf("scan object row: %w", err)
		}
		objs = append(objs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []trigger.Range
	for _, o := range objs {
		first, okFirst, err := s.boundaryMark(o.uid, start, stop, `ASC`)
		if err != nil {
			return nil, err
		}
		last, okLast, err := s.boundaryMark(o.uid, start, stop, `DESC`)
		if err != nil {
			return nil, err
		}
		if !okFirst || !okLast {
			continue
		}
		out = append(out, trigger.Range{
			ObjectID: o.uid,
			First:    first,
			Last:     last,
			Location: o.camLoc,
		})
	}
	return out, nil
}

// boundaryMark returns an object's earliest (ASC) or latest (DESC)
// observation within [start, stop].
func (s *Store) boundaryMark(objID, start, stop int64, order string) (trigger.MarkPoint, bool, error) {
	query := `SELECT time, frame FROM motion WHERE obj_uid = ?`
	args := []any{objID}
	if start != trigger.TimeUnbounded {
		query += ` AND time >= ?`
		args = append(args, start)
	}
	if stop != trigger.TimeUnbounded {
		query += ` AND time <= ?`
		args = append(args, stop)
	}
	query += ` ORDER BY time ` + order + ` LIMIT 1`

	var mp trigger.MarkPoint
	err := s.QueryRow(query, args...).Scan(&mp.TimeMs, &mp.Frame)
	if errors.Is(err, sql.ErrNoRows) {
		return trigger.MarkPoint{}, false, nil
	}
	if err != nil {
		return trigger.MarkPoint{}, false, fmt.Errorf("query range boundary: %w", err)
	}
	return mp, true, nil
}

// SetMinSizeFilter implements trigger.DataManager. Zero clears the filter.
func (s *Store) SetMinSizeFilter(minHeight int) error {
	s.minHeight = minHeight
	return nil
}

// SetTargetFilter implements trigger.DataManager. Matching is by object
// class; actions are not recorded in the store, so a target's action is
// accepted as "any". A nil target list clears the filter.
func (s *Store) SetTargetFilter(targets []trigger.Target, start, stop int64) error {
	s.targets = targets
	return nil
}
