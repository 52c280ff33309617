// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIngressHandler(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expectedBody   string
		delivered      bool
	}{
		{
			name:           "valid event",
			method:         http.MethodPost,
			path:           "/broadcast",
			body:           `{"type":"candidate_added","candidate":{"id":"c1","title":"Heat"}}`,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"success":true}`,
			delivered:      true,
		},
		{
			name:           "any object is forwarded",
			method:         http.MethodPost,
			path:           "/broadcast",
			body:           `{"anything":[1,2,3]}`,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"success":true}`,
			delivered:      true,
		},
		{
			name:           "invalid JSON",
			method:         http.MethodPost,
			path:           "/broadcast",
			body:           `{"type":`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Invalid JSON"}`,
		},
		{
			name:           "array is rejected",
			method:         http.MethodPost,
			path:           "/broadcast",
			body:           `[{"type":"x"}]`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Invalid JSON"}`,
		},
		{
			name:           "unknown path",
			method:         http.MethodPost,
			path:           "/other",
			body:           `{"type":"x"}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "root path",
			method:         http.MethodGet,
			path:           "/",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "wrong method",
			method:         http.MethodGet,
			path:           "/broadcast",
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(nil)
			conn := &fakeConn{}
			hub.Register(conn)
			handler := IngressHandler(hub)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedBody != "" && strings.TrimSpace(w.Body.String()) != tt.expectedBody {
				t.Errorf("Expected body %s, got %s", tt.expectedBody, w.Body.String())
			}

			msgs := conn.messages()
			if tt.delivered {
				if len(msgs) != 2 || msgs[1] != tt.body {
					t.Errorf("Expected body forwarded verbatim, got %v", msgs)
				}
			} else if len(msgs) != 1 {
				t.Errorf("Expected nothing forwarded, got %v", msgs)
			}
		})
	}
}
