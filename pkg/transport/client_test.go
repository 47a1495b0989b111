package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// serve answers every request with status and body; last returns the most
// recent request
func serve(t *testing.T, status int, body string) (c *Client, last func() *http.Request) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen *http.Request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = r.Clone(context.Background())
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return NewClient(SetupWithBase(srv.URL+"/v0", "appX", "keyY")), func() *http.Request {
		mu.Lock()
		defer mu.Unlock()
		return seen
	}
}

func TestDoReturnsObject(t *testing.T) {
	c, last := serve(t, 200, `{"id":"rec1","fields":{"Name":"Alice"}}`)

	payload, err := c.Do(context.Background(), Get("People/rec1", nil))
	require.NoError(t, err)
	assert.Equal(t, "rec1", payload["id"])

	seen := last()
	require.NotNil(t, seen)
	assert.Equal(t, "/v0/appX/People/rec1", seen.URL.Path)
	assert.Equal(t, "Bearer keyY", seen.Header.Get("Authorization"))
	_, err = uuid.Parse(seen.Header.Get(RequestIDHeader))
	assert.NoError(t, err, "request id must be a uuid")
}

func TestDoSilentSuccess(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"whitespace", "  \n"},
		{"array", `[1,2,3]`},
		{"string", `"ok"`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := serve(t, 200, tt.body)
			payload, err := c.Do(context.Background(), Get("People", nil))
			assert.NoError(t, err)
			assert.Nil(t, payload)
		})
	}
}

func TestDoInvalidJSON(t *testing.T) {
	c, _ := serve(t, 502, `<html>Bad Gateway</html>`)

	payload, err := c.Do(context.Background(), Get("People", nil))
	assert.Nil(t, payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUncategorized)
	assert.Equal(t, 502, StatusCode(err))
}

func TestDoClassifiesErrors(t *testing.T) {
	c, _ := serve(t, 400, `{"error":"validation_error","message":"Unknown field name","status":400}`)
	_, err := c.Do(context.Background(), Post("People", map[string]any{"fields": map[string]any{}}))
	assert.True(t, IsValidation(err))

	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "Unknown field name", validation.Message)

	c, _ = serve(t, 404, `{"error":"NOT_FOUND","message":"Could not find","status":404}`)
	_, err = c.Do(context.Background(), Get("People/missing", nil))
	assert.False(t, IsValidation(err))
	assert.Equal(t, 404, StatusCode(err))
}

func TestDoErrorStatusFromBody(t *testing.T) {
	// the status inside the body decides, not the HTTP status
	c, _ := serve(t, 200, `{"error":"validation_error","message":"bad","status":400}`)
	_, err := c.Do(context.Background(), Get("People", nil))
	assert.True(t, IsValidation(err))

	c, _ = serve(t, 400, `{"error":"validation_error","message":"bad"}`)
	_, err = c.Do(context.Background(), Get("People", nil))
	assert.False(t, IsValidation(err), "missing status is code 0")
	assert.Equal(t, 0, StatusCode(err))
}

func TestDoObjectWithoutMessageIsPayload(t *testing.T) {
	c, _ := serve(t, 200, `{"error":"not really","id":"rec1"}`)
	payload, err := c.Do(context.Background(), Get("People/rec1", nil))
	require.NoError(t, err)
	assert.Equal(t, "rec1", payload["id"])
}

func TestDoTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	c := NewClient(SetupWithBase(url, "appX", "keyY"), WithLogger(zap.New(core)))

	_, err := c.Do(context.Background(), Get("People", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUncategorized)
	assert.Equal(t, 0, StatusCode(err))

	entries := logs.FilterMessage("server error on request").All()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
	assert.Equal(t, "GET", entries[0].ContextMap()["method"])
}

func TestDoLogsApplicationErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(422)
		_, _ = io.WriteString(w, `{"error":"INVALID","message":"nope","status":422}`)
	}))
	defer srv.Close()

	c := NewClient(SetupWithBase(srv.URL, "appX", "keyY"), WithLogger(zap.New(core)))
	_, err := c.Do(context.Background(), Delete("People/rec1", nil))
	require.Error(t, err)

	entries := logs.FilterMessage("application error on request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "INVALID", entries[0].ContextMap()["reason"])
	assert.Equal(t, "People/rec1", entries[0].ContextMap()["path"])
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func TestWithHTTPClient(t *testing.T) {
	called := false
	c := NewClient(Setup("appX", "keyY"), WithHTTPClient(doerFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return nil, errors.New("offline")
	})))

	_, err := c.Do(context.Background(), Get("People", nil))
	assert.True(t, called)
	assert.ErrorIs(t, err, ErrUncategorized)
	assert.Equal(t, "https://api.airtable.com/v0/appX", c.Endpoint().HostPrefix)
}
