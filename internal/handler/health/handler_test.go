package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(context.Context) error {
	return p.err
}

func TestHealthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		pinger fakePinger
		path   string
		status int
		body   string
	}{
		{"live ignores database", fakePinger{err: errors.New("down")}, "/health/live", http.StatusOK, `{"status":"UP"}`},
		{"ready", fakePinger{}, "/health/ready", http.StatusOK, `{"status":"UP"}`},
		{"root is readiness", fakePinger{}, "/health", http.StatusOK, `{"status":"UP"}`},
		{"database down", fakePinger{err: errors.New("down")}, "/health/ready", http.StatusServiceUnavailable,
			`{"status":"DOWN","reason":"Database connection failed"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			NewHandler(tt.pinger).RegisterRoutes(r)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}
