package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/krzysztof-programista/NotesApp/internal/pkg/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuthRouter(t *testing.T) (*gin.Engine, *token.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := token.NewService(testSecret)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}

	r := gin.New()
	r.GET("/protected", Auth(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetInt("userID"),
			"email":   c.GetString("email"),
		})
	})
	return r, tokens
}

func request(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingHeader(t *testing.T) {
	r, _ := newAuthRouter(t)
	if w := request(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuth_NotBearer(t *testing.T) {
	r, _ := newAuthRouter(t)
	if w := request(r, "Basic abc123"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestAuth_GarbageToken(t *testing.T) {
	r, _ := newAuthRouter(t)
	if w := request(r, "Bearer not.a.token"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	r, tokens := newAuthRouter(t)
	tok, err := tokens.Issue(1, "alice@x.com", token.KindSession, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if w := request(r, "Bearer "+tok); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestAuth_ForeignSecret(t *testing.T) {
	r, _ := newAuthRouter(t)
	other, err := token.NewService("ffffffffffffffffffffffffffffffff")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	tok, err := other.Issue(1, "alice@x.com", token.KindSession, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if w := request(r, "Bearer "+tok); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestAuth_ActivationTokenRejected(t *testing.T) {
	r, tokens := newAuthRouter(t)
	tok, err := tokens.Issue(1, "alice@x.com", token.KindActivation, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if w := request(r, "Bearer "+tok); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for activation token on a protected route, got %d", w.Code)
	}
}

func TestAuth_ValidTokenResolvesIdentity(t *testing.T) {
	r, tokens := newAuthRouter(t)
	tok, err := tokens.Issue(42, "alice@x.com", token.KindSession, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := request(r, "Bearer "+tok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if want := `"user_id":` + strconv.Itoa(42); !strings.Contains(body, want) {
		t.Fatalf("expected %s in body, got %s", want, body)
	}
	if !strings.Contains(body, `"email":"alice@x.com"`) {
		t.Fatalf("expected resolved email in body, got %s", body)
	}
}
