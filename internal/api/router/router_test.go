package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumacrm/lead-image-service/internal/api/router"
	"github.com/lumacrm/lead-image-service/internal/counts"
	"github.com/lumacrm/lead-image-service/internal/crm"
	"github.com/lumacrm/lead-image-service/internal/gallery"
	"github.com/lumacrm/lead-image-service/internal/http/handlers"
	"github.com/lumacrm/lead-image-service/internal/imaging"
	"github.com/lumacrm/lead-image-service/internal/leads"
	"github.com/lumacrm/lead-image-service/pkg/logging"
)

func newRouter(t *testing.T, adminSecret string) http.Handler {
	t.Helper()
	store := leads.NewMemoryStore()
	logger := logging.New("error")
	countSvc := counts.NewService(store, nil, logger)
	gallerySvc := gallery.NewService(store, imaging.NewBase64Codec(), countSvc, logger)
	crmSvc := crm.NewService(store, countSvc, logger)

	return router.New(&router.Config{
		Logger:          logger,
		LeadsHandler:    handlers.NewLeadsHandler(crmSvc, gallerySvc, logger),
		ImagesHandler:   handlers.NewImagesHandler(gallerySvc, logger),
		HealthHandler:   handlers.NewHealthHandler(nil, nil, logger),
		AdminAuthSecret: adminSecret,
	})
}

func TestHealthRoute(t *testing.T) {
	handler := newRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	handler := newRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteLeadRequiresAdminToken(t *testing.T) {
	handler := newRouter(t, "router-secret")
	target := "/api/leads/" + leads.NewLeadID().String()

	req := httptest.NewRequest(http.MethodDelete, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("router-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req = httptest.NewRequest(http.MethodDelete, target, nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	// Auth passed; the unknown lead answers 404 from the handler.
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with valid token, got %d", rec.Code)
	}
}

func TestDeleteLeadOpenWithoutSecret(t *testing.T) {
	handler := newRouter(t, "")

	req := httptest.NewRequest(http.MethodDelete, "/api/leads/"+leads.NewLeadID().String(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected handler 404 when auth is disabled, got %d", rec.Code)
	}
}
