package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database mirrors a Snapshot into SQLite so the data can be queried with SQL.
type Database struct {
	db *sql.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close closes the DB.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Loans keep dangling book/user IDs, so no foreign keys.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            available_copies INTEGER NOT NULL,
            total_copies INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS issued (
            id INTEGER PRIMARY KEY,
            book_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            issue_date TEXT NOT NULL,
            due_date TEXT NOT NULL,
            return_date TEXT
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if err := setMeta(tx, "schema_version", schemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}

func setMeta(tx *sql.Tx, key string, v int) error {
	_, err := tx.Exec(`INSERT INTO meta(key,value) VALUES(?,?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, key, strconv.Itoa(v))
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Snapshot transfer
// ---------------------------------------------------------------------------

var counterKeys = []string{"next_book_id", "next_user_id", "next_issued_id"}

// WriteSnapshot replaces every row with the contents of s in one transaction.
// Rows sharing an id collapse to the last one.
func (d *Database) WriteSnapshot(s Snapshot) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"books", "users", "issued"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	bookStmt, err := tx.Prepare(`INSERT OR REPLACE INTO books(id,title,author,available_copies,total_copies) VALUES(?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer bookStmt.Close()
	for _, b := range s.Books {
		if _, err := bookStmt.Exec(b.ID, b.Title, b.Author, b.AvailableCopies, b.TotalCopies); err != nil {
			return fmt.Errorf("insert book %d: %w", b.ID, err)
		}
	}

	userStmt, err := tx.Prepare(`INSERT OR REPLACE INTO users(id,name,email) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer userStmt.Close()
	for _, u := range s.Users {
		if _, err := userStmt.Exec(u.ID, u.Name, nullString(u.Email)); err != nil {
			return fmt.Errorf("insert user %d: %w", u.ID, err)
		}
	}

	loanStmt, err := tx.Prepare(`INSERT OR REPLACE INTO issued(id,book_id,user_id,issue_date,due_date,return_date) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer loanStmt.Close()
	for _, r := range s.Loans {
		var ret sql.NullString
		if r.ReturnDate != nil {
			ret = sql.NullString{String: r.ReturnDate.Format(DateLayout), Valid: true}
		}
		if _, err := loanStmt.Exec(r.ID, r.BookID, r.UserID,
			r.IssueDate.Format(DateLayout), r.DueDate.Format(DateLayout), ret); err != nil {
			return fmt.Errorf("insert loan %d: %w", r.ID, err)
		}
	}

	for i, v := range []int{s.NextBookID, s.NextUserID, s.NextLoanID} {
		if err := setMeta(tx, counterKeys[i], v); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReadSnapshot loads every table back, ordered by id. Counters missing from
// meta default to 1 and are repaired against the loaded rows.
func (d *Database) ReadSnapshot() (Snapshot, error) {
	s := Snapshot{NextBookID: 1, NextUserID: 1, NextLoanID: 1}
	for i, dst := range []*int{&s.NextBookID, &s.NextUserID, &s.NextLoanID} {
		var v string
		err := d.db.QueryRow(`SELECT value FROM meta WHERE key=?`, counterKeys[i]).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return Snapshot{}, err
		}
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}

	var err error
	if s.Books, err = d.readBooks(); err != nil {
		return Snapshot{}, err
	}
	if s.Users, err = d.readUsers(); err != nil {
		return Snapshot{}, err
	}
	if s.Loans, err = d.readLoans(); err != nil {
		return Snapshot{}, err
	}
	s.repairCounters()
	return s, nil
}

func (d *Database) readBooks() ([]Book, error) {
	rows, err := d.db.Query(`SELECT id,title,author,available_copies,total_copies FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.AvailableCopies, &b.TotalCopies); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (d *Database) readUsers() ([]User, error) {
	rows, err := d.db.Query(`SELECT id,name,email FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			u     User
			email sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Name, &email); err != nil {
			return nil, err
		}
		if email.Valid {
			u.Email = &email.String
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (d *Database) readLoans() ([]LoanRecord, error) {
	rows, err := d.db.Query(`SELECT id,book_id,user_id,issue_date,due_date,return_date FROM issued ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []LoanRecord
	for rows.Next() {
		var (
			r          LoanRecord
			issue, due string
			ret        sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.BookID, &r.UserID, &issue, &due, &ret); err != nil {
			return nil, err
		}
		if r.IssueDate, err = parseColumn("issue_date", issue); err != nil {
			return nil, err
		}
		if r.DueDate, err = parseColumn("due_date", due); err != nil {
			return nil, err
		}
		if ret.Valid {
			t, err := parseColumn("return_date", ret.String)
			if err != nil {
				return nil, err
			}
			r.ReturnDate = &t
		}
		loans = append(loans, r)
	}
	return loans, rows.Err()
}

func parseColumn(column, v string) (time.Time, error) {
	t, err := ParseDate(v)
	if err != nil {
		return time.Time{}, &FieldError{Field: column, Value: v, Err: err}
	}
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
