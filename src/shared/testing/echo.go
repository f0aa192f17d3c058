package testing

import (
	"io"
	"net/http/httptest"

	"github.com/labstack/echo/v4"
)

// ServeRequest runs a request through the echo instance and returns the
// recorded response.
func ServeRequest(e *echo.Echo, method string, target string, body io.Reader) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, body)
	recorder := httptest.NewRecorder()
	e.ServeHTTP(recorder, request)
	return recorder
}
