package crawler

import (
	"context"
	"sync"

	"sjsage522/listingscout/internal/fetch"
	apperrors "sjsage522/listingscout/pkg/errors"
)

// MockFetcher serves canned bodies by URL and records every request
type MockFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	errs    map[string]error
	calls   []string
	onFetch func(url string)
}

func NewMockFetcher(pages map[string]string) *MockFetcher {
	return &MockFetcher{
		pages: pages,
		errs:  make(map[string]error),
	}
}

func (m *MockFetcher) Fetch(ctx context.Context, rawURL, _ string) (*fetch.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.calls = append(m.calls, rawURL)
	hook := m.onFetch
	m.mu.Unlock()
	if hook != nil {
		hook(rawURL)
	}

	if err, ok := m.errs[rawURL]; ok {
		return nil, err
	}
	body, ok := m.pages[rawURL]
	if !ok {
		return &fetch.Response{URL: rawURL, StatusCode: 404}, apperrors.NewHTTPStatus("mock", 404)
	}
	return &fetch.Response{URL: rawURL, StatusCode: 200, Body: []byte(body)}, nil
}

func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockFetcher) Called(url string) bool {
	for _, c := range m.Calls() {
		if c == url {
			return true
		}
	}
	return false
}
