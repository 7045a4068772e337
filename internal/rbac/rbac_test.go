package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func doRequest(role string, mw gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/x", func(c *gin.Context) {
		c.Set("role", role)
	}, mw, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAnyRole(t *testing.T) {
	mw := RequireAnyRole(RoleStaff, RoleAdmin)

	if code := doRequest(RoleAdmin, mw); code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", code)
	}
	if code := doRequest(RoleStaff, mw); code != http.StatusOK {
		t.Fatalf("staff: expected 200, got %d", code)
	}
	if code := doRequest(RoleResident, mw); code != http.StatusForbidden {
		t.Fatalf("resident: expected 403, got %d", code)
	}
	if code := doRequest("", mw); code != http.StatusForbidden {
		t.Fatalf("missing role: expected 403, got %d", code)
	}
}

func TestValid(t *testing.T) {
	for _, role := range []string{RoleResident, RoleStaff, RoleAdmin} {
		if !Valid(role) {
			t.Fatalf("expected %s valid", role)
		}
	}
	if Valid("visitor") {
		t.Fatal("visitor is not an issued role")
	}
}
