package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/gt"

	"health-assistant-backend/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signedRouter(secret string) *gin.Engine {
	r := gin.New()
	r.POST("/hook", middleware.VerifyWhatsAppSignature(secret), func(c *gin.Context) {
		body, _ := c.GetRawData()
		c.String(http.StatusOK, string(body))
	})
	return r
}

func TestVerifyWhatsAppSignature(t *testing.T) {
	const secret = "app-secret"
	body := `{"object":"whatsapp_business_account"}`

	t.Run("valid signature passes and body is preserved", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
		req.Header.Set("X-Hub-Signature-256", "sha256="+middleware.SignPayload([]byte(body), secret))
		w := httptest.NewRecorder()
		signedRouter(secret).ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusOK)
		gt.V(t, w.Body.String()).Equal(body)
	})

	t.Run("missing signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
		w := httptest.NewRecorder()
		signedRouter(secret).ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("wrong signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
		req.Header.Set("X-Hub-Signature-256", "sha256="+middleware.SignPayload([]byte(body), "other"))
		w := httptest.NewRecorder()
		signedRouter(secret).ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("no secret configured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
		w := httptest.NewRecorder()
		signedRouter("").ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORS([]string{"http://localhost:3000"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		gt.V(t, w.Header().Get("Access-Control-Allow-Origin")).Equal("http://localhost:3000")
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		gt.V(t, w.Header().Get("Access-Control-Allow-Origin")).Equal("")
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusNoContent)
	})
}
