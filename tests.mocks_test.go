package main

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockRequestStorage struct {
	FindContactIDByEmailFunc func(ctx context.Context, email sql.NullString) (int64, error)
	UpdateContactFunc        func(ctx context.Context, id int64, contact Contact) error
	InsertContactFunc        func(ctx context.Context, contact Contact) (int64, error)
	InsertBookRequestFunc    func(ctx context.Context, request BookRequest) (int64, error)
	ListRequestsFunc         func(ctx context.Context) ([]RequestView, error)
}

// FindContactIDByEmail mocks the lookup of a contact by its email.
func (m *MockRequestStorage) FindContactIDByEmail(ctx context.Context, email sql.NullString) (int64, error) {
	return m.FindContactIDByEmailFunc(ctx, email)
}

// UpdateContact mocks the update of an existing contact.
func (m *MockRequestStorage) UpdateContact(ctx context.Context, id int64, contact Contact) error {
	return m.UpdateContactFunc(ctx, id, contact)
}

// InsertContact mocks the creation of a contact.
func (m *MockRequestStorage) InsertContact(ctx context.Context, contact Contact) (int64, error) {
	return m.InsertContactFunc(ctx, contact)
}

// InsertBookRequest mocks the creation of a book request.
func (m *MockRequestStorage) InsertBookRequest(ctx context.Context, request BookRequest) (int64, error) {
	return m.InsertBookRequestFunc(ctx, request)
}

// ListRequests mocks the listing of all book requests.
func (m *MockRequestStorage) ListRequests(ctx context.Context) ([]RequestView, error) {
	return m.ListRequestsFunc(ctx)
}

// MockQueuer records pushed requests.
type MockQueuer struct {
	mu       sync.Mutex
	PushFunc func(ctx context.Context, qid string, view RequestView) error
	PopFunc  func(ctx context.Context, qids ...string) (string, RequestView, error)
	Pushed   []RequestView
}

func (m *MockQueuer) Push(ctx context.Context, qid string, view RequestView) error {
	m.mu.Lock()
	m.Pushed = append(m.Pushed, view)
	m.mu.Unlock()
	if m.PushFunc == nil {
		return nil
	}
	return m.PushFunc(ctx, qid, view)
}

func (m *MockQueuer) Pop(ctx context.Context, qids ...string) (string, RequestView, error) {
	return m.PopFunc(ctx, qids...)
}

// MockArchiveStorage keeps archived requests in memory.
type MockArchiveStorage struct {
	mu      sync.Mutex
	AddFunc func(ctx context.Context, view RequestView) error
	Views   []RequestView
}

func (m *MockArchiveStorage) Add(ctx context.Context, view RequestView) error {
	if m.AddFunc != nil {
		if err := m.AddFunc(ctx, view); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Views = append(m.Views, view)
	m.mu.Unlock()
	return nil
}

func (m *MockArchiveStorage) GetAll(_ context.Context) ([]RequestView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RequestView{}, m.Views...), nil
}

// MockRequestService implements a fake RequestServiceProvider.
type MockRequestService struct {
	SubmitFunc func(ctx context.Context, sub Submission) (Confirmation, error)
	ListFunc   func(ctx context.Context) ([]RequestView, error)
}

func (m *MockRequestService) Submit(ctx context.Context, sub Submission) (Confirmation, error) {
	return m.SubmitFunc(ctx, sub)
}

func (m *MockRequestService) List(ctx context.Context) ([]RequestView, error) {
	return m.ListFunc(ctx)
}

// MockViewer fails rendering on demand.
type MockViewer struct {
	Err error
}

func (m *MockViewer) Render(name string, _ interface{}) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return []byte("<p>" + name + "</p>"), nil
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `2023-07-02T00:00:00.000Z` with the request date layout.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

var errMockStore = errors.New("store failure")

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// validSubmission returns a fully filled book request form.
func validSubmission(email string) Submission {
	return Submission{
		BookTitle:  nullString("Middlemarch"),
		Author:     nullString("George Eliot"),
		Comments:   nullString("Any edition"),
		FirstName:  nullString("Ada"),
		Surname:    nullString("Lovelace"),
		Email:      nullString(email),
		Mobile:     nullString("0123456789"),
		Newsletter: true,
	}
}

func newTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			StaticDir:   "public_html",
			LandingPage: "/home.html",
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
		},
		OpsEndpointsEnable: true,
	}
}
