package factory

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newEchoContext(requestID string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest("GET", "/health", nil)
	if requestID != "" {
		req.Header.Set(echo.HeaderXRequestID, requestID)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestNewModuleLogger(t *testing.T) {
	if NewModuleLogger("billing-service") == nil {
		t.Fatal("expected logger")
	}
}

func TestLoggerWithContextAddsRequestID(t *testing.T) {
	base := NewModuleLogger("billing-service")

	logger := LoggerWithContext(base, newEchoContext("req-123"))
	if logger == nil {
		t.Fatal("expected logger with context")
	}
}

func TestLoggerWithContextWithoutRequestID(t *testing.T) {
	base := NewModuleLogger("billing-service")

	logger := LoggerWithContext(base, newEchoContext(""))
	if logger != base {
		t.Fatal("expected the base logger when no request id is present")
	}
}
