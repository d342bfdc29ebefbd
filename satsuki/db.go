/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

var DefaultTables = map[string]string{

	// One row per claimed label. external_ns* mirror the parent-zone
	// delegation when the user runs their own nameservers; timestamps
	// are RFC3339 UTC.
	"users": `CREATE TABLE IF NOT EXISTS 'users' (
id		  INTEGER PRIMARY KEY AUTOINCREMENT,
subdomain	  TEXT NOT NULL UNIQUE,
password_hash	  TEXT NOT NULL,
external_ns	  INTEGER NOT NULL DEFAULT 0,
external_ns1	  TEXT,
external_ns2	  TEXT,
external_ns3	  TEXT,
external_ns4	  TEXT,
external_ns5	  TEXT,
external_ns6	  TEXT,
created_at	  TEXT NOT NULL,
updated_at	  TEXT NOT NULL,
last_login_at	  TEXT
)`,
}

type Tx struct {
	*sql.Tx
	UserDB  *UserDB
	context string
	done    bool
}

func (tx *Tx) Commit() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	err := tx.Tx.Commit()
	if err != nil {
		log.Printf("<--- Error committing UserDB transaction (%s): %v", tx.context, err)
	}
	tx.UserDB.mu.Unlock()
	return err
}

func (tx *Tx) Rollback() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	err := tx.Tx.Rollback()
	if err != nil {
		log.Printf("<--- Error rolling back UserDB transaction (%s): %v", tx.context, err)
	}
	tx.UserDB.mu.Unlock()
	return err
}

func (tx *Tx) Exec(query string, args ...interface{}) (sql.Result, error) {
	result, err := tx.Tx.Exec(query, args...)
	if err != nil {
		log.Printf("<--- Error executing UserDB Exec (%s): %v", tx.context, err)
	}
	return result, err
}

func (tx *Tx) Query(query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := tx.Tx.Query(query, args...)
	if err != nil {
		log.Printf("<--- Error executing UserDB query (%s): %v", tx.context, err)
	}
	return rows, err
}

func (tx *Tx) QueryRow(query string, args ...interface{}) *sql.Row {
	return tx.Tx.QueryRow(query, args...)
}

// UserDB owns the user table. mu serializes transactions so that no
// operation ever observes a partial write.
type UserDB struct {
	DB *sql.DB
	mu sync.Mutex
}

func (db *UserDB) Begin(context string) (*Tx, error) {
	db.mu.Lock()
	tx, err := db.DB.Begin()
	if err != nil {
		db.mu.Unlock()
		log.Printf("Error beginning transaction (%s): %v", context, err)
		return nil, err
	}
	return &Tx{Tx: tx, UserDB: db, context: context}, nil
}

func (db *UserDB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.DB.Query(query, args...)
}

func (db *UserDB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRow(query, args...)
}

func (db *UserDB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.DB.Exec(query, args...)
}

func (db *UserDB) Close() error {
	return db.DB.Close()
}

func dbSetupTables(db *sql.DB) error {
	if Globals.Verbose {
		log.Printf("Setting up missing tables\n")
	}

	for t, s := range DefaultTables {
		stmt, err := db.Prepare(s)
		if err != nil {
			return fmt.Errorf("dbSetupTables: error from %s schema %q: %v", t, s, err)
		}
		_, err = stmt.Exec()
		if err != nil {
			return fmt.Errorf("dbSetupTables: failed to set up db schema %s: %v", t, err)
		}
	}
	return nil
}

func NewUserDB(dbfile string) (*UserDB, error) {
	if dbfile == "" {
		return nil, fmt.Errorf("error: DB filename unspecified")
	}
	if Globals.Verbose {
		log.Printf("NewUserDB: using sqlite db in file %s\n", dbfile)
	}
	if dbfile != ":memory:" {
		if _, err := os.Stat(dbfile); err == nil {
			if err := os.Chmod(dbfile, 0664); err != nil {
				return nil, fmt.Errorf("NewUserDB: Error trying to ensure that db %s is writable: %v", dbfile, err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbfile)
	if err != nil {
		return nil, fmt.Errorf("NewUserDB: Error from sql.Open: %v", err)
	}

	// A single connection keeps sqlite writes serialized and makes
	// :memory: databases behave (each sqlite connection would otherwise
	// get its own empty database).
	db.SetMaxOpenConns(1)

	if err := dbSetupTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &UserDB{DB: db}, nil
}
