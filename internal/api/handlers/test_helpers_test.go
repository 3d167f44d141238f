package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zapfragrance/sitecontrol/internal/api/middleware"
	"github.com/zapfragrance/sitecontrol/internal/auth"
)

// testSession creates a live admin session for testing.
func testSession() *auth.Session {
	now := time.Now()
	return &auth.Session{
		ID:              uuid.New(),
		AdminID:         uuid.New(),
		Email:           "owner@zapfragrance.com",
		AuthenticatedAt: now,
		ExpiresAt:       now.Add(time.Hour),
	}
}

// InjectSession returns middleware that marks every request as authenticated
// with s, the way AuthMiddleware does after a successful lookup.
func InjectSession(s *auth.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s != nil {
			c.Request = c.Request.WithContext(auth.WithSessionID(c.Request.Context(), s.ID))
			c.Set(string(middleware.SessionContextKey), s)
		}
		c.Next()
	}
}

// SetupTestRouter returns a gin engine in test mode with an /api/v1 group.
func SetupTestRouter() (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	return r, r.Group("/api/v1")
}

// JSONRequest builds a request with a JSON body.
func JSONRequest(method, path, body string) *http.Request {
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// MultipartRequest builds a multipart upload with a single file field.
func MultipartRequest(path, field, filename string, content []byte) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, _ := w.CreateFormFile(field, filename)
		part.Write(content)
	}
	w.Close()

	req, _ := http.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// DoRequest serves req on r and returns the recorded response.
func DoRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
