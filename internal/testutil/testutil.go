// Package testutil holds request and JSON helpers shared by handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func NewTestRequest(method, path string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, path, body)
}

func NewTestRequestWithJSON(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func ParseJSONResponse(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("parse response %q: %v", string(body), err)
	}
	return out
}

func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d (body: %s)", want, rr.Code, rr.Body.String())
	}
}

// AssertJSONContains checks a top-level string field of a JSON object.
func AssertJSONContains(t *testing.T, body []byte, key, want string) {
	t.Helper()
	got := ParseJSONResponse(t, body)
	if fmt.Sprint(got[key]) != want {
		t.Fatalf("expected %s=%q, got %v", key, want, got[key])
	}
}

func RandomUUID() uuid.UUID {
	return uuid.New()
}

// RandomPhone returns a plausible Sri Lankan mobile number.
func RandomPhone() string {
	return fmt.Sprintf("+94 7%d %03d %04d", rand.IntN(10), rand.IntN(1000), rand.IntN(10000))
}
