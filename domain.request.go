package main

import (
	"context"
	"database/sql"
	"time"
)

// RequestDateLayout is the ISO-8601 layout used for request timestamps. It
// has a fixed width so that lexical ordering matches chronological ordering.
const RequestDateLayout = "2006-01-02T15:04:05.000Z07:00"

// Contact represents a person who submitted at least one book request.
// Email identifies a contact and is never changed once stored.
type Contact struct {
	ID              int64
	FirstName       sql.NullString
	Surname         sql.NullString
	Email           sql.NullString
	Mobile          sql.NullString
	NewsletterOptIn bool
}

// BookRequest represents one submitted request for a book.
type BookRequest struct {
	ID          int64
	Title       sql.NullString
	Author      sql.NullString
	Comments    sql.NullString
	RequestDate string
	ContactID   int64
}

// RequestView is a book request joined with its owning contact.
type RequestView struct {
	RequestID       int64  `json:"request_id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Comments        string `json:"comments"`
	RequestDate     string `json:"request_date"`
	FirstName       string `json:"fname"`
	Surname         string `json:"sname"`
	Email           string `json:"email"`
	Mobile          string `json:"mobile"`
	NewsletterOptIn bool   `json:"newsletter_opt_in"`
}

// Submission holds the values of a book request form. Absent form
// fields stay invalid (NULL) so that the store enforces required columns.
type Submission struct {
	BookTitle  sql.NullString
	Author     sql.NullString
	Comments   sql.NullString
	FirstName  sql.NullString
	Surname    sql.NullString
	Email      sql.NullString
	Mobile     sql.NullString
	Newsletter bool
}

// Contact extracts the contact part of the submission.
func (s Submission) Contact() Contact {
	return Contact{
		FirstName:       s.FirstName,
		Surname:         s.Surname,
		Email:           s.Email,
		Mobile:          s.Mobile,
		NewsletterOptIn: s.Newsletter,
	}
}

// Confirmation is what a successful submission echoes back to the submitter.
type Confirmation struct {
	RequestID   int64
	ContactID   int64
	RequestDate string
	Submission  Submission
}

// View builds the joined representation of the confirmed request.
func (c Confirmation) View() RequestView {
	s := c.Submission
	return RequestView{
		RequestID:       c.RequestID,
		Title:           s.BookTitle.String,
		Author:          s.Author.String,
		Comments:        s.Comments.String,
		RequestDate:     c.RequestDate,
		FirstName:       s.FirstName.String,
		Surname:         s.Surname.String,
		Email:           s.Email.String,
		Mobile:          s.Mobile.String,
		NewsletterOptIn: s.Newsletter,
	}
}

// FormatRequestDate formats t in UTC with the request timestamp layout.
func FormatRequestDate(t time.Time) string {
	return t.UTC().Format(RequestDateLayout)
}

// RequestStorage defines the store operations needed by the request service.
type RequestStorage interface {
	FindContactIDByEmail(ctx context.Context, email sql.NullString) (int64, error)
	UpdateContact(ctx context.Context, id int64, contact Contact) error
	InsertContact(ctx context.Context, contact Contact) (int64, error)
	InsertBookRequest(ctx context.Context, request BookRequest) (int64, error)
	ListRequests(ctx context.Context) ([]RequestView, error)
}

// ArchiveStorage defines operations on the archive of submitted requests.
type ArchiveStorage interface {
	Add(ctx context.Context, view RequestView) error
	GetAll(ctx context.Context) ([]RequestView, error)
}
