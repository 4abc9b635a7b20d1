package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAPIHandler(t *testing.T, rs RequestServiceProvider, views Viewer, archive ArchiveStorage) *APIHandler {
	t.Helper()
	if views == nil {
		v, err := NewViews()
		require.NoError(t, err)
		views = v
	}
	return NewAPIHandler(
		zap.NewNop(),
		newTestConfig(),
		&Statistics{started: NewMockClocker().Now()},
		NewMockClocker(),
		NewMockUIDHandler("0", true),
		views,
		rs,
		archive,
	)
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/submit-request", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func validForm() url.Values {
	return url.Values{
		FormBookTitle:  {"Middlemarch"},
		FormAuthor:     {"George Eliot"},
		FormComments:   {"Any edition"},
		FormFirstName:  {"Ada"},
		FormSurname:    {"Lovelace"},
		FormEmail:      {"ada@example.com"},
		FormMobile:     {"0123456789"},
		FormNewsletter: {"on"},
	}
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(data)
}

// TestIndexHandler ensures the root path redirects to the landing page.
func TestIndexHandler(t *testing.T) {
	api := newTestAPIHandler(t, nil, &MockViewer{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	api.Index(w, req, httprouter.Params{})
	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/home.html", res.Header.Get("Location"))
}

// TestSubmitRequestHandler ensures a valid form is stored and echoed back.
func TestSubmitRequestHandler(t *testing.T) {
	store := newTestSQLStore(t)
	rs := newTestRequestService(store, nopQueue{})
	api := newTestAPIHandler(t, rs, nil, nil)

	t.Run("should pass: full form", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.SubmitRequest(w, formRequest(validForm()), httprouter.Params{})
		res := w.Result()
		body := readBody(t, res)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "text/html; charset=utf-8", res.Header.Get("Content-Type"))
		assert.Contains(t, body, "Middlemarch")
		assert.Contains(t, body, "George Eliot")
		assert.Contains(t, body, "ada@example.com")
		assert.Contains(t, body, "2023-07-02T00:00:00.000Z")
		assert.Equal(t, 1, countRows(t, store.client, "BookRequests"))
	})

	t.Run("should pass: checkbox unchecked", func(t *testing.T) {
		form := validForm()
		form.Del(FormNewsletter)
		w := httptest.NewRecorder()
		api.SubmitRequest(w, formRequest(form), httprouter.Params{})
		assert.Equal(t, http.StatusOK, w.Code)

		views, err := rs.List(context.Background())
		require.NoError(t, err)
		assert.False(t, views[0].NewsletterOptIn)
	})

	t.Run("should fail: missing title", func(t *testing.T) {
		form := validForm()
		form.Del(FormBookTitle)
		w := httptest.NewRecorder()
		api.SubmitRequest(w, formRequest(form), httprouter.Params{})
		res := w.Result()
		body := readBody(t, res)
		assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
		assert.Equal(t, "text/plain; charset=utf-8", res.Header.Get("Content-Type"))
		assert.Equal(t, MsgRequestSaveFailed, body)
		assert.Equal(t, 2, countRows(t, store.client, "BookRequests"))
	})

	t.Run("should fail: missing names", func(t *testing.T) {
		form := validForm()
		form.Set(FormEmail, "new@example.com")
		form.Del(FormFirstName)
		w := httptest.NewRecorder()
		api.SubmitRequest(w, formRequest(form), httprouter.Params{})
		res := w.Result()
		assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
		assert.Equal(t, MsgContactSaveFailed, readBody(t, res))
	})
}

// TestSubmitRequestHandler_Messages ensures each failing stage gets its own message.
func TestSubmitRequestHandler_Messages(t *testing.T) {
	testCases := []struct {
		stage   SubmitStage
		message string
	}{
		{StageLookup, MsgLookupFailed},
		{StageContactUpdate, MsgContactUpdateFailed},
		{StageContactSave, MsgContactSaveFailed},
		{StageContactRefetch, MsgContactRaceFailed},
		{StageRequestSave, MsgRequestSaveFailed},
	}

	for _, tc := range testCases {
		t.Run(string(tc.stage), func(t *testing.T) {
			rs := &MockRequestService{
				SubmitFunc: func(context.Context, Submission) (Confirmation, error) {
					return Confirmation{}, &SubmitError{Stage: tc.stage, Err: errMockStore}
				},
			}
			api := newTestAPIHandler(t, rs, &MockViewer{}, nil)
			w := httptest.NewRecorder()
			api.SubmitRequest(w, formRequest(validForm()), httprouter.Params{})
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, tc.message, w.Body.String())
		})
	}

	t.Run("render failure", func(t *testing.T) {
		rs := &MockRequestService{
			SubmitFunc: func(context.Context, Submission) (Confirmation, error) {
				return Confirmation{RequestID: 1}, nil
			},
		}
		api := newTestAPIHandler(t, rs, &MockViewer{Err: errors.New("bad template")}, nil)
		w := httptest.NewRecorder()
		api.SubmitRequest(w, formRequest(validForm()), httprouter.Params{})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, MsgRenderFailed, w.Body.String())
	})
}

// TestViewRequestsHandler ensures all requests are listed in html.
func TestViewRequestsHandler(t *testing.T) {
	t.Run("should pass: empty store", func(t *testing.T) {
		api := newTestAPIHandler(t, newTestRequestService(newTestSQLStore(t), nopQueue{}), nil, nil)
		w := httptest.NewRecorder()
		api.ViewRequests(w, httptest.NewRequest(http.MethodGet, "/view-requests", nil), httprouter.Params{})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "No book requests yet.")
	})

	t.Run("should pass: listed requests", func(t *testing.T) {
		rs := newTestRequestService(newTestSQLStore(t), nopQueue{})
		_, err := rs.Submit(context.Background(), validSubmission("ada@example.com"))
		require.NoError(t, err)
		api := newTestAPIHandler(t, rs, nil, nil)

		w := httptest.NewRecorder()
		api.ViewRequests(w, httptest.NewRequest(http.MethodGet, "/view-requests", nil), httprouter.Params{})
		body := w.Body.String()
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, body, "Middlemarch")
		assert.Contains(t, body, "Ada Lovelace")
		assert.Contains(t, body, "<td>Yes</td>")
	})

	t.Run("should fail: store failure", func(t *testing.T) {
		rs := &MockRequestService{
			ListFunc: func(context.Context) ([]RequestView, error) { return nil, errMockStore },
		}
		api := newTestAPIHandler(t, rs, &MockViewer{}, nil)
		w := httptest.NewRecorder()
		api.ViewRequests(w, httptest.NewRequest(http.MethodGet, "/view-requests", nil), httprouter.Params{})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, MsgListFailed, w.Body.String())
	})
}

// TestReadSubmissionForm ensures absent fields are kept as NULL values.
func TestReadSubmissionForm(t *testing.T) {
	form := url.Values{
		FormBookTitle: {""},
		FormEmail:     {"ada@example.com"},
	}
	sub, err := ReadSubmissionForm(formRequest(form))
	require.NoError(t, err)
	assert.True(t, sub.BookTitle.Valid)
	assert.Equal(t, "", sub.BookTitle.String)
	assert.Equal(t, nullString("ada@example.com"), sub.Email)
	assert.False(t, sub.Author.Valid)
	assert.False(t, sub.Mobile.Valid)
	assert.False(t, sub.Newsletter)
}

func TestIsCheckboxOn(t *testing.T) {
	for _, v := range []string{"on", "ON", "true", "1", "yes"} {
		assert.True(t, IsCheckboxOn(v), v)
	}
	for _, v := range []string{"", "off", "0", "no"} {
		assert.False(t, IsCheckboxOn(v), v)
	}
}
