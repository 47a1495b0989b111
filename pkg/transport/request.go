// Package transport describes requests to the remote API and executes them
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Method is an HTTP method the API accepts
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// Endpoint fixes the host prefix and authentication headers for the process.
// Build it once at startup and share it.
type Endpoint struct {
	HostPrefix string
	Headers    map[string]string
}

// DefaultBaseURL is the API root that app ids are appended to
const DefaultBaseURL = "https://api.airtable.com/v0"

// Setup builds the endpoint for an app and API key
func Setup(appID, apiKey string) Endpoint {
	return SetupWithBase(DefaultBaseURL, appID, apiKey)
}

// SetupWithBase builds the endpoint against a custom API root
func SetupWithBase(baseURL, appID, apiKey string) Endpoint {
	return Endpoint{
		HostPrefix: strings.TrimRight(baseURL, "/") + "/" + appID,
		Headers: map[string]string{
			"Authorization": "Bearer " + apiKey,
		},
	}
}

// Request fully describes one API call without executing it
type Request struct {
	Method Method
	Path   string
	Params map[string]any
}

// Get describes a GET request
func Get(path string, params map[string]any) Request {
	return Request{Method: MethodGet, Path: path, Params: params}
}

// Post describes a POST request
func Post(path string, params map[string]any) Request {
	return Request{Method: MethodPost, Path: path, Params: params}
}

// Put describes a PUT request
func Put(path string, params map[string]any) Request {
	return Request{Method: MethodPut, Path: path, Params: params}
}

// Delete describes a DELETE request
func Delete(path string, params map[string]any) Request {
	return Request{Method: MethodDelete, Path: path, Params: params}
}

// EncodesBody reports whether params travel as a JSON body rather than in
// the query string
func (r Request) EncodesBody() bool {
	return r.Method == MethodPost || r.Method == MethodPut
}

// String returns "METHOD path"
func (r Request) String() string {
	return fmt.Sprintf("%s %s", r.Method, r.Path)
}

// Build encodes the request against endpoint. POST and PUT carry params as a
// JSON body; GET and DELETE carry them as a query string.
func (r Request) Build(ctx context.Context, endpoint Endpoint) (*http.Request, error) {
	u, err := url.Parse(endpoint.HostPrefix)
	if err != nil {
		return nil, fmt.Errorf("invalid host prefix: %w", err)
	}
	u = u.JoinPath(strings.Split(strings.Trim(r.Path, "/"), "/")...)

	var body *bytes.Reader
	if r.EncodesBody() {
		data, err := json.Marshal(compact(r.Params))
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		u.RawQuery = EncodeQuery(r.Params)
	}

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, string(r.Method), u.String(), body)
	} else {
		req, err = http.NewRequestWithContext(ctx, string(r.Method), u.String(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range endpoint.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// compact drops absent (nil) parameters
func compact(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// EncodeQuery renders params as a query string with sorted keys. Nil values
// are omitted, slices repeat as key[]=v and maps nest as key[sub]=v.
func EncodeQuery(params map[string]any) string {
	values := url.Values{}
	for k, v := range params {
		addQuery(values, k, v)
	}
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

func addQuery(values url.Values, key string, v any) {
	switch val := v.(type) {
	case nil:
		return
	case []any:
		for _, item := range val {
			addQuery(values, key+"[]", item)
		}
	case []string:
		for _, item := range val {
			values.Add(key+"[]", item)
		}
	case map[string]any:
		for sub, item := range val {
			addQuery(values, key+"["+sub+"]", item)
		}
	case bool:
		if val {
			values.Add(key, "1")
		} else {
			values.Add(key, "0")
		}
	default:
		values.Add(key, fmt.Sprint(val))
	}
}
