/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

type User struct {
	Id           int64
	Subdomain    string
	PasswordHash string
	ExternalNs   bool
	ExternalNs1  *string
	ExternalNs2  *string
	ExternalNs3  *string
	ExternalNs4  *string
	ExternalNs5  *string
	ExternalNs6  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

func (u *User) NsMode() string {
	if u.ExternalNs {
		return "external"
	}
	return "internal"
}

// ExternalNsList returns the stored external nameservers in slot order,
// empty slots skipped.
func (u *User) ExternalNsList() []string {
	var out []string
	for _, p := range []*string{u.ExternalNs1, u.ExternalNs2, u.ExternalNs3,
		u.ExternalNs4, u.ExternalNs5, u.ExternalNs6} {
		if p != nil && *p != "" {
			out = append(out, *p)
		}
	}
	return out
}

const userColumns = `id, subdomain, password_hash, external_ns,
external_ns1, external_ns2, external_ns3, external_ns4, external_ns5, external_ns6,
created_at, updated_at, last_login_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var extns int
	var ns [6]sql.NullString
	var created, updated string
	var lastLogin sql.NullString

	err := row.Scan(&u.Id, &u.Subdomain, &u.PasswordHash, &extns,
		&ns[0], &ns[1], &ns[2], &ns[3], &ns[4], &ns[5],
		&created, &updated, &lastLogin)
	if err != nil {
		return nil, err
	}

	u.ExternalNs = extns != 0
	dests := []**string{&u.ExternalNs1, &u.ExternalNs2, &u.ExternalNs3,
		&u.ExternalNs4, &u.ExternalNs5, &u.ExternalNs6}
	for i, v := range ns {
		if v.Valid {
			s := v.String
			*dests[i] = &s
		}
	}

	if u.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, fmt.Errorf("scanUser: bad created_at %q: %v", created, err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return nil, fmt.Errorf("scanUser: bad updated_at %q: %v", updated, err)
	}
	if lastLogin.Valid {
		t, err := time.Parse(time.RFC3339, lastLogin.String)
		if err != nil {
			return nil, fmt.Errorf("scanUser: bad last_login_at %q: %v", lastLogin.String, err)
		}
		u.LastLoginAt = &t
	}
	return &u, nil
}

// CreateUser inserts a fresh row in internal NS mode. A duplicate label
// is a conflict, which is how concurrent signups of the same label are
// decided.
func (udb *UserDB) CreateUser(label, hash string, now time.Time) (*User, error) {
	tx, err := udb.Begin("CreateUser")
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now = now.UTC().Truncate(time.Second)
	ts := now.Format(time.RFC3339)
	res, err := tx.Exec(`INSERT INTO users (subdomain, password_hash, external_ns,
external_ns1, external_ns2, external_ns3, external_ns4, external_ns5, external_ns6,
created_at, updated_at, last_login_at)
VALUES (?, ?, 0, NULL, NULL, NULL, NULL, NULL, NULL, ?, ?, NULL)`, label, hash, ts, ts)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, Errf(ErrConflict, "already exists")
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &User{
		Id:           id,
		Subdomain:    label,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (udb *UserDB) GetUser(label string) (*User, error) {
	row := udb.QueryRow("SELECT "+userColumns+" FROM users WHERE subdomain = ?", label)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Errf(ErrNotFound, "no such user")
		}
		return nil, err
	}
	return u, nil
}

func (udb *UserDB) UserExists(label string) (bool, error) {
	var count int
	err := udb.QueryRow("SELECT COUNT(*) FROM users WHERE subdomain = ?", label).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var dummyVerify = DummyVerify

// VerifyAndTouch authenticates a user and records the login time. An
// unknown label still burns one hash verification so response timing does
// not reveal which labels exist.
func (udb *UserDB) VerifyAndTouch(label, password string, now time.Time) (*User, error) {
	u, err := udb.GetUser(label)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			dummyVerify()
			return nil, Errf(ErrAuth, "invalid credentials")
		}
		return nil, err
	}

	ok, err := VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("VerifyAndTouch: hash error for user %s: %v", label, err)
	}
	if !ok {
		return nil, Errf(ErrAuth, "invalid credentials")
	}

	now = now.UTC().Truncate(time.Second)
	ts := now.Format(time.RFC3339)
	_, err = udb.Exec("UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?", ts, ts, u.Id)
	if err != nil {
		return nil, err
	}
	u.LastLoginAt = &now
	u.UpdatedAt = now
	return u, nil
}

// SetExternalNs stores up to six external nameservers and flips the user
// into external NS mode.
func (udb *UserDB) SetExternalNs(label string, nsList []string, now time.Time) error {
	var ns [6]*string
	for i := range nsList {
		if i >= MaxExternalNs {
			break
		}
		ns[i] = &nsList[i]
	}
	ts := now.UTC().Truncate(time.Second).Format(time.RFC3339)
	res, err := udb.Exec(`UPDATE users SET external_ns = 1,
external_ns1 = ?, external_ns2 = ?, external_ns3 = ?,
external_ns4 = ?, external_ns5 = ?, external_ns6 = ?,
updated_at = ? WHERE subdomain = ?`,
		ns[0], ns[1], ns[2], ns[3], ns[4], ns[5], ts, label)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetInternalNs clears the external nameserver slots and flips the user
// back into internal NS mode.
func (udb *UserDB) SetInternalNs(label string, now time.Time) error {
	ts := now.UTC().Truncate(time.Second).Format(time.RFC3339)
	res, err := udb.Exec(`UPDATE users SET external_ns = 0,
external_ns1 = NULL, external_ns2 = NULL, external_ns3 = NULL,
external_ns4 = NULL, external_ns5 = NULL, external_ns6 = NULL,
updated_at = ? WHERE subdomain = ?`, ts, label)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (udb *UserDB) SetPassword(label, newHash string, now time.Time) error {
	ts := now.UTC().Truncate(time.Second).Format(time.RFC3339)
	res, err := udb.Exec("UPDATE users SET password_hash = ?, updated_at = ? WHERE subdomain = ?",
		newHash, ts, label)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return Errf(ErrNotFound, "no such user")
	}
	return nil
}

func (udb *UserDB) CountUsers() (int, error) {
	var count int
	err := udb.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (udb *UserDB) ListUsers() ([]UserListEntry, error) {
	rows, err := udb.Query("SELECT " + userColumns + " FROM users ORDER BY subdomain")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserListEntry
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, UserListEntry{
			Subdomain: u.Subdomain,
			NsMode:    u.NsMode(),
			CreatedAt: u.CreatedAt,
			LastLogin: u.LastLoginAt,
		})
	}
	return out, rows.Err()
}
