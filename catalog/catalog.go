/*
Copyright © 2019 the goesgrid authors.
This file is part of goesgrid.

goesgrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

goesgrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with goesgrid.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package catalog keeps an index of GOES product files in a SQLite
// database so that the files covering a time window can be found without
// listing their storage location.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spatialmodel/goesgrid"

	// Register the sqlite driver.
	_ "modernc.org/sqlite"
)

// Granule is one product file.
type Granule struct {
	// Path is the location of the file, which may be a local path or a
	// blob storage URL.
	Path string

	// Product is the instrument, processing level and product name, for
	// example "ABI-L1b-RadC" or "GLM-L2-LCFA".
	Product string

	// Platform is the satellite identifier, for example "G16".
	Platform string

	// Band is the ABI band number, or 0 for products without bands.
	Band int

	Start, End time.Time
}

// granuleRE matches the product, band and platform parts of a file name
// such as OR_ABI-L1b-RadC-M6C02_G16_s20192000001139_e..._c....nc.
var granuleRE = regexp.MustCompile(`^OR_([A-Z]+-L\d[a-z+]*-[A-Za-z0-9]+?)(?:-M\d+(?:C(\d{2}))?)?_(G\d{2})_s\d{14}`)

// ParseGranule returns the granule described by the file name at p.
func ParseGranule(p string) (Granule, error) {
	base := path.Base(p)
	m := granuleRE.FindStringSubmatch(base)
	if m == nil {
		return Granule{}, fmt.Errorf("catalog: %q is not a product file name", base)
	}
	g := Granule{Path: p, Product: m[1], Platform: m[3]}
	if m[2] != "" {
		g.Band, _ = strconv.Atoi(m[2])
	}
	var err error
	if g.Start, g.End, err = goesgrid.ParseScanTimes(base); err != nil {
		return Granule{}, fmt.Errorf("catalog: %v", err)
	}
	return g, nil
}

// DB is a granule catalog.
type DB struct {
	*sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS granules (
	path TEXT PRIMARY KEY,
	product TEXT NOT NULL,
	platform TEXT NOT NULL,
	band INTEGER NOT NULL,
	scan_start INTEGER NOT NULL,
	scan_end INTEGER NOT NULL
)`

const index = `CREATE INDEX IF NOT EXISTS granules_product_start ON granules (product, platform, scan_start)`

// Open opens the catalog database at filename, creating it if it does
// not exist.
func Open(filename string) (*DB, error) {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening %s: %v", filename, err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{schema, index} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("catalog: creating tables in %s: %v", filename, err)
		}
	}
	return &DB{db}, nil
}

// Add adds granules to the catalog, replacing any existing entries with
// the same paths.
func (db *DB) Add(ctx context.Context, granules ...Granule) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: %v", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO granules (path, product, platform, band, scan_start, scan_end)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET product=excluded.product, platform=excluded.platform,
			band=excluded.band, scan_start=excluded.scan_start, scan_end=excluded.scan_end`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("catalog: %v", err)
	}
	defer stmt.Close()
	for _, g := range granules {
		if _, err := stmt.ExecContext(ctx, g.Path, g.Product, g.Platform, g.Band,
			g.Start.UnixNano(), g.End.UnixNano()); err != nil {
			tx.Rollback()
			return fmt.Errorf("catalog: adding %s: %v", g.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: %v", err)
	}
	return nil
}

// Query selects granules from the catalog. Empty fields match any value.
type Query struct {
	Product, Platform string
	Band              int

	// Ini and Fin are the start (inclusive) and end (exclusive) of the
	// time window. Zero values leave that side of the window open.
	Ini, Fin time.Time

	// Mode selects which of the scan times must be within the window.
	Mode goesgrid.TimeMode
}

// Find returns the granules matching q, sorted by scan start time.
func (db *DB) Find(ctx context.Context, q Query) ([]Granule, error) {
	var where []string
	var args []interface{}
	if q.Product != "" {
		where = append(where, "product = ?")
		args = append(args, q.Product)
	}
	if q.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, q.Platform)
	}
	if q.Band != 0 {
		where = append(where, "band = ?")
		args = append(args, q.Band)
	}
	window := func(col string) {
		if !q.Ini.IsZero() {
			where = append(where, col+" >= ?")
			args = append(args, q.Ini.UnixNano())
		}
		if !q.Fin.IsZero() {
			where = append(where, col+" < ?")
			args = append(args, q.Fin.UnixNano())
		}
	}
	switch q.Mode {
	case goesgrid.EndTime:
		window("scan_end")
	case goesgrid.BothTimes:
		window("scan_start")
		window("scan_end")
	default:
		window("scan_start")
	}

	query := "SELECT path, product, platform, band, scan_start, scan_end FROM granules"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scan_start, path"
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: %v", err)
	}
	defer rows.Close()
	var o []Granule
	for rows.Next() {
		var g Granule
		var start, end int64
		if err := rows.Scan(&g.Path, &g.Product, &g.Platform, &g.Band, &start, &end); err != nil {
			return nil, fmt.Errorf("catalog: %v", err)
		}
		g.Start = time.Unix(0, start).UTC()
		g.End = time.Unix(0, end).UTC()
		o = append(o, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: %v", err)
	}
	return o, nil
}
