package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, sub string, roles []string) string {
	t.Helper()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func invokeAuth(t *testing.T, mw echo.MiddlewareFunc, header string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	return c, err
}

func TestBearerAuth_ValidToken(t *testing.T) {
	token := signToken(t, "42", []string{"admin"})
	c, err := invokeAuth(t, BearerAuth(testKey), "Bearer "+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if uid := UserIDFromContext(c.Request().Context()); uid != 42 {
		t.Errorf("expected user id 42, got %d", uid)
	}
	roles := RolesFromContext(c.Request().Context())
	if len(roles) != 1 || roles[0] != "admin" {
		t.Errorf("expected [admin] roles, got %v", roles)
	}
}

func TestBearerAuth_MissingHeader(t *testing.T) {
	_, err := invokeAuth(t, BearerAuth(testKey), "")
	if err == nil {
		t.Fatal("expected error for missing header")
	}
}

func TestBearerAuth_WrongKey(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "42"}}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-key"))
	_, err := invokeAuth(t, BearerAuth(testKey), "Bearer "+token)
	if err == nil {
		t.Fatal("expected error for token signed with wrong key")
	}
}

func TestBearerAuth_NonNumericSubject(t *testing.T) {
	token := signToken(t, "not-a-number", nil)
	_, err := invokeAuth(t, BearerAuth(testKey), "Bearer "+token)
	if err == nil {
		t.Fatal("expected error for non-numeric subject")
	}
}

func TestDevAuth_Defaults(t *testing.T) {
	c, err := invokeAuth(t, DevAuth(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uid := UserIDFromContext(c.Request().Context()); uid != 1 {
		t.Errorf("expected dev user id 1, got %d", uid)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(roles []string, required ...string) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		ctx := c.Request().Context()
		if roles != nil {
			c.SetRequest(c.Request().WithContext(contextWithRoles(ctx, roles)))
		}
		return RequireRole(required...)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})(c)
	}

	if err := run([]string{"admin"}, "editor"); err != nil {
		t.Errorf("admin should pass any role check, got %v", err)
	}
	if err := run([]string{"editor"}, "editor"); err != nil {
		t.Errorf("matching role should pass, got %v", err)
	}
	if err := run([]string{"viewer"}, "editor"); err == nil {
		t.Error("expected forbidden for missing role")
	}
	if err := run(nil, "editor"); err == nil {
		t.Error("expected forbidden when no roles on context")
	}
}

func contextWithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, UserRolesKey, roles)
}
