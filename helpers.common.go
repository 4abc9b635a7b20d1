package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
)

type ContextKey string

const (
	RequestIDPrefix         string     = "r"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"
)

// Names of the book request form fields.
const (
	FormBookTitle  = "bookTitle"
	FormAuthor     = "author"
	FormComments   = "commentField"
	FormFirstName  = "firstname"
	FormSurname    = "surname"
	FormEmail      = "email"
	FormMobile     = "mobile"
	FormNewsletter = "newsletter"
)

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val, ok := ctx.Value(contextKey).(string); ok {
		return val
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val, ok := ctx.Value(RequestNumberContextKey).(uint64); ok {
		return val
	}
	return 0
}

// ReadSubmissionForm parses the url-encoded body of a book request form.
// Fields missing from the body are kept as NULL values.
func ReadSubmissionForm(r *http.Request) (Submission, error) {
	if err := r.ParseForm(); err != nil {
		return Submission{}, err
	}
	form := r.PostForm
	return Submission{
		BookTitle:  formValue(form, FormBookTitle),
		Author:     formValue(form, FormAuthor),
		Comments:   formValue(form, FormComments),
		FirstName:  formValue(form, FormFirstName),
		Surname:    formValue(form, FormSurname),
		Email:      formValue(form, FormEmail),
		Mobile:     formValue(form, FormMobile),
		Newsletter: IsCheckboxOn(form.Get(FormNewsletter)),
	}, nil
}

func formValue(form url.Values, key string) sql.NullString {
	values, ok := form[key]
	if !ok || len(values) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: values[0], Valid: true}
}

// IsCheckboxOn interprets an html checkbox value.
func IsCheckboxOn(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// GetRequestSourceIP helps find the source IP of the caller. The forwarding
// headers are client controlled, so they are only read when trustProxy is set.
func GetRequestSourceIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// Get IP from the X-REAL-IP header
		ip := r.Header.Get("X-REAL-IP")
		if net.ParseIP(ip) != nil {
			return ip
		}

		// Get IP from X-FORWARDED-FOR header
		ips := r.Header.Get("X-FORWARDED-FOR")
		for _, ip := range strings.Split(ips, ",") {
			ip = strings.TrimSpace(ip)
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	if net.ParseIP(ip) != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
