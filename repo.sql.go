package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var _ RequestStorage = (*sqlRequestStorage)(nil) // ensure sqlRequestStorage implements RequestStorage.

type sqlRequestStorage struct {
	logger  *zap.Logger
	client  *sql.DB
	dialect dialect
}

// GetSQLClient opens the configured relational store and checks it is reachable.
// SQLite stores are limited to a single connection which is shared by all requests.
func GetSQLClient(config *StoreConfig) (*sql.DB, error) {
	dsn := config.DSN
	if config.Driver == DriverSQLite {
		var err error
		if dsn, err = sqliteDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(config.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open the database: %v", err)
	}
	if config.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.PingTimeout)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("test connection failed: %v", err)
	}
	return db, nil
}

// sqliteDSN makes sure the database folder exists and appends the
// pragmas every new connection must apply.
func sqliteDSN(path string) (string, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("failed to create database folder: %v", err)
		}
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
}

// NewSQLRequestStorage provides an instance of relational request storage.
func NewSQLRequestStorage(logger *zap.Logger, driver string, client *sql.DB) (*sqlRequestStorage, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &sqlRequestStorage{
		logger:  logger,
		client:  client,
		dialect: d,
	}, nil
}

// InitSchema ensures both tables exist. It never drops or truncates data.
func (s *sqlRequestStorage) InitSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	s.logger.Info("store: schema ensured", zap.String("store.driver", s.dialect.name))
	return nil
}

// Close releases the store connection.
func (s *sqlRequestStorage) Close() error {
	return s.client.Close()
}

// FindContactIDByEmail returns the id of the contact registered with email.
func (s *sqlRequestStorage) FindContactIDByEmail(ctx context.Context, email sql.NullString) (int64, error) {
	var id int64
	err := s.client.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT contact_id FROM ContactDetails WHERE email = ?`),
		email,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrContactNotFound
	}
	if err != nil {
		return 0, ClassifyStoreError(err)
	}
	return id, nil
}

// UpdateContact overwrites the mutable attributes of a contact. Email is left as is.
func (s *sqlRequestStorage) UpdateContact(ctx context.Context, id int64, c Contact) error {
	_, err := s.client.ExecContext(ctx,
		s.dialect.rebind(`UPDATE ContactDetails SET fname = ?, sname = ?, mobile = ?, newsletter_opt_in = ? WHERE contact_id = ?`),
		c.FirstName, c.Surname, c.Mobile, c.NewsletterOptIn, id,
	)
	return ClassifyStoreError(err)
}

// InsertContact adds a new contact and returns its assigned id.
func (s *sqlRequestStorage) InsertContact(ctx context.Context, c Contact) (int64, error) {
	var id int64
	err := s.client.QueryRowContext(ctx,
		s.dialect.rebind(`INSERT INTO ContactDetails (fname, sname, email, mobile, newsletter_opt_in)
VALUES (?, ?, ?, ?, ?) RETURNING contact_id`),
		c.FirstName, c.Surname, c.Email, c.Mobile, c.NewsletterOptIn,
	).Scan(&id)
	if err != nil {
		return 0, ClassifyStoreError(err)
	}
	return id, nil
}

// InsertBookRequest adds a new book request and returns its assigned id.
func (s *sqlRequestStorage) InsertBookRequest(ctx context.Context, br BookRequest) (int64, error) {
	var id int64
	err := s.client.QueryRowContext(ctx,
		s.dialect.rebind(`INSERT INTO BookRequests (title, author, comments, request_date, contact_id)
VALUES (?, ?, ?, ?, ?) RETURNING request_id`),
		br.Title, br.Author, br.Comments, br.RequestDate, br.ContactID,
	).Scan(&id)
	if err != nil {
		return 0, ClassifyStoreError(err)
	}
	return id, nil
}

// ListRequests returns all book requests joined with their contact,
// most recent first.
func (s *sqlRequestStorage) ListRequests(ctx context.Context) ([]RequestView, error) {
	rows, err := s.client.QueryContext(ctx, `
SELECT
	br.request_id, br.title, br.author, br.comments, br.request_date,
	cd.fname, cd.sname, cd.email, cd.mobile, cd.newsletter_opt_in
FROM BookRequests br
JOIN ContactDetails cd ON br.contact_id = cd.contact_id
ORDER BY br.request_date DESC, br.request_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []RequestView{}
	for rows.Next() {
		var v RequestView
		var comments, mobile sql.NullString
		var optIn sql.NullBool
		err = rows.Scan(&v.RequestID, &v.Title, &v.Author, &comments, &v.RequestDate,
			&v.FirstName, &v.Surname, &v.Email, &mobile, &optIn)
		if err != nil {
			return nil, err
		}
		v.Comments = comments.String
		v.Mobile = mobile.String
		v.NewsletterOptIn = optIn.Bool
		views = append(views, v)
	}
	return views, rows.Err()
}
