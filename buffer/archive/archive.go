/*
Package archive persists the contents of a buffer.Store in an SQLite
database, so that series recorded in one run can be played back in a later
one.

A snapshot replaces whatever the database held before. Only written
elements are stored; the pre-allocated size of each series is kept so a
loaded series accepts as many writes as the original.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/IEcheandia/scanmaster-sub004/buffer"
	"github.com/npillmayer/schuko/tracing"
	_ "modernc.org/sqlite"
)

// tracer writes to trace with key 'scanmaster.archive'
func tracer() tracing.Trace {
	return tracing.Select("scanmaster.archive")
}

// ErrNoSnapshot is returned by Load if the database holds no series.
var ErrNoSnapshot = errors.New("no buffer snapshot in database")

const schema = `
	CREATE TABLE IF NOT EXISTS buffer_series (
		slot        INTEGER NOT NULL,
		seam_series INTEGER NOT NULL,
		seam        INTEGER NOT NULL,
		size        INTEGER NOT NULL,
		PRIMARY KEY (slot, seam_series, seam)
	);
	CREATE TABLE IF NOT EXISTS buffer_samples (
		slot        INTEGER NOT NULL,
		seam_series INTEGER NOT NULL,
		seam        INTEGER NOT NULL,
		idx         INTEGER NOT NULL,
		value       DOUBLE NOT NULL,
		rank        INTEGER NOT NULL,
		pos         DOUBLE NOT NULL,
		pos_rank    INTEGER NOT NULL,
		PRIMARY KEY (slot, seam_series, seam, idx)
	);
`

// Open opens (or creates) the database at path and makes sure the tables
// exist. Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// an in-memory database lives on a single connection
	db.SetMaxOpenConns(1)
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the archive tables if they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating archive tables: %w", err)
	}
	return nil
}

// Save replaces the archived snapshot with the current contents of store.
func Save(ctx context.Context, db *sql.DB, store *buffer.Store) (err error) {
	if err = Migrate(ctx, db); err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, "DELETE FROM buffer_samples"); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM buffer_series"); err != nil {
		return err
	}
	for _, k := range store.Keys() {
		h, e := store.Get(k)
		if e != nil { // cleared concurrently
			continue
		}
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO buffer_series (slot, seam_series, seam, size) VALUES (?, ?, ?, ?)",
			k.Slot, k.SeamSeries, k.Seam, h.Size()); err != nil {
			return fmt.Errorf("saving %s: %w", k, err)
		}
		data, pos := h.Snapshot()
		for i := range data {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO buffer_samples (slot, seam_series, seam, idx, value, rank, pos, pos_rank)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				k.Slot, k.SeamSeries, k.Seam, i,
				data[i].Value, data[i].Rank, pos[i].Value, pos[i].Rank); err != nil {
				return fmt.Errorf("saving %s[%d]: %w", k, i, err)
			}
		}
		tracer().Debugf("archived %s with %d elements", k, len(data))
	}
	return tx.Commit()
}

// Load builds a new store from the archived snapshot.
func Load(ctx context.Context, db *sql.DB) (*buffer.Store, error) {
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		"SELECT slot, seam_series, seam, size FROM buffer_series")
	if err != nil {
		return nil, err
	}
	store := buffer.NewStore()
	handles := make(map[buffer.Key]*buffer.Handle)
	for rows.Next() {
		var k buffer.Key
		var size int
		if err := rows.Scan(&k.Slot, &k.SeamSeries, &k.Seam, &size); err != nil {
			rows.Close()
			return nil, err
		}
		handles[k] = store.Init(k, size)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, ErrNoSnapshot
	}
	rows, err = db.QueryContext(ctx,
		`SELECT slot, seam_series, seam, idx, value, rank, pos, pos_rank
		 FROM buffer_samples ORDER BY slot, seam_series, seam, idx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k buffer.Key
		var i int
		var data, pos buffer.Sample
		if err := rows.Scan(&k.Slot, &k.SeamSeries, &k.Seam, &i,
			&data.Value, &data.Rank, &pos.Value, &pos.Rank); err != nil {
			return nil, err
		}
		h, ok := handles[k]
		if !ok {
			tracer().Errorf("archived sample %d for unknown series %s", i, k)
			continue
		}
		if err := h.Write(i, data, pos); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	tracer().Infof("loaded %d buffers from archive", len(handles))
	return store, nil
}
