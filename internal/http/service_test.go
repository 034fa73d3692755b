package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuxmai/catalog-admin/internal/apperr"
	"github.com/vuxmai/catalog-admin/internal/auth"
	"github.com/vuxmai/catalog-admin/internal/config"
	internalhttp "github.com/vuxmai/catalog-admin/internal/http"
	"github.com/vuxmai/catalog-admin/internal/model"
	"github.com/vuxmai/catalog-admin/internal/service"
)

var (
	knownProductID = uuid.MustParse("01890a5d-ac96-774b-bcce-b302099a8057")
	categoryID     = uuid.New()
	colorID        = uuid.New()
)

func knownProduct() model.Product {
	return model.Product{
		ID:          knownProductID,
		Name:        "Red Shoe",
		Description: "a red shoe",
		Slug:        "red-shoe",
		Status:      true,
		Stock:       10,
		Price:       decimal.RequireFromString("19.99"),
		Weight:      decimal.RequireFromString("0.5"),
		CategoryID:  categoryID,
		ColorID:     colorID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

type stubProductSvc struct{}

func (stubProductSvc) Create(_ context.Context, params service.CreateProductParams) (model.Product, error) {
	product := knownProduct()
	product.Name = params.Name
	return product, nil
}

func (stubProductSvc) Update(_ context.Context, id uuid.UUID, params service.UpdateProductParams) (model.Product, error) {
	if id != knownProductID {
		return model.Product{}, apperr.ErrProductNotFound
	}
	product := knownProduct()
	product.Name = params.Name
	return product, nil
}

func (stubProductSvc) Delete(_ context.Context, id uuid.UUID) error {
	if id != knownProductID {
		return apperr.ErrProductNotFound
	}
	return nil
}

func (stubProductSvc) GetByID(_ context.Context, id uuid.UUID) (model.Product, error) {
	if id != knownProductID {
		return model.Product{}, apperr.ErrProductNotFound
	}
	return knownProduct(), nil
}

func (stubProductSvc) GetBySlug(_ context.Context, slug string) (model.Product, error) {
	if slug != "red-shoe" {
		return model.Product{}, apperr.ErrProductNotFound
	}
	return knownProduct(), nil
}

func (stubProductSvc) ListAll(context.Context) ([]model.Product, error) {
	return []model.Product{knownProduct()}, nil
}

func (stubProductSvc) ListByGroup(context.Context, int64) ([]model.Product, error) {
	return nil, nil
}

func (stubProductSvc) UpdatePrice(_ context.Context, id uuid.UUID, price decimal.Decimal) (model.Product, error) {
	if id != knownProductID {
		return model.Product{}, apperr.ErrProductNotFound
	}
	product := knownProduct()
	product.Price = price
	return product, nil
}

func (stubProductSvc) UpdateStock(_ context.Context, id uuid.UUID, stock int) (model.Product, error) {
	product := knownProduct()
	product.Stock = stock
	return product, nil
}

func (stubProductSvc) UpdateGroup(_ context.Context, id uuid.UUID, groupID *int64) (model.Product, error) {
	product := knownProduct()
	product.ProductGroupID = groupID
	return product, nil
}

func (stubProductSvc) UpdateStatus(_ context.Context, id uuid.UUID, status bool) (model.Product, error) {
	product := knownProduct()
	product.Status = status
	return product, nil
}

type stubAuthSvc struct{}

func (stubAuthSvc) Register(_ context.Context, params service.RegisterParams) (model.Admin, error) {
	if params.Email == "taken@example.com" {
		return model.Admin{}, apperr.ErrAdminEmailTaken
	}
	return model.Admin{ID: uuid.New(), Name: params.Name, Email: params.Email}, nil
}

func (stubAuthSvc) Login(_ context.Context, params service.LoginParams) (service.LoginResult, error) {
	if params.Password != "s3cret-pass" {
		return service.LoginResult{}, apperr.ErrInvalidCredentials
	}
	return service.LoginResult{
		Admin:       model.Admin{ID: uuid.New(), Email: params.Email},
		AccessToken: "token",
	}, nil
}

func (stubAuthSvc) Logout(context.Context, string) error { return nil }

func (stubAuthSvc) ForgotPassword(context.Context, string) (string, error) {
	return "reset-token", nil
}

func (stubAuthSvc) ResetPassword(context.Context, service.ResetPasswordParams) error {
	return nil
}

type stubDenylist struct{}

func (stubDenylist) Revoke(context.Context, string, time.Duration) error { return nil }

func (stubDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }

type stubHealth struct{}

func (stubHealth) IsHealthy(context.Context) (bool, error) { return true, nil }

var (
	setupOnce  sync.Once
	testRouter chi.Router
	jwtManager *auth.JWTManager
)

// testServer builds the router once; the Prometheus middleware registers
// its collectors on the default registry and cannot be built twice.
func testServer(t *testing.T) chi.Router {
	t.Helper()

	setupOnce.Do(func() {
		cfg := config.Auth{
			JWTSecret:      "test-secret",
			Issuer:         "catalog-admin",
			AccessTokenTTL: time.Hour,
			ResetTokenTTL:  time.Hour,
		}
		jwtManager = auth.NewJWTManager(cfg)

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := internalhttp.New(
			config.HTTP{Port: 0},
			logger,
			jwtManager,
			stubDenylist{},
			stubHealth{},
			stubProductSvc{},
			stubAuthSvc{},
		)

		r := chi.NewRouter()
		svc.RegisterMiddlewares(r)
		svc.RegisterHandlers(r)
		testRouter = r
	})

	return testRouter
}

func accessToken(t *testing.T) string {
	t.Helper()

	token, err := jwtManager.GenerateAccessToken(uuid.New(), "admin@example.com")
	require.NoError(t, err)
	return token
}

func do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	resp := httptest.NewRecorder()
	testServer(t).ServeHTTP(resp, req)
	return resp
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env
}

func productForm(t *testing.T, withImage bool) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	values := map[string]string{
		"name":        "Red Shoe",
		"description": "a red shoe",
		"status":      "true",
		"stock":       "10",
		"price":       "19.99",
		"weight":      "0.5",
		"category_id": categoryID.String(),
		"color_id":    colorID.String(),
	}
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}

	if withImage {
		fw, err := mw.CreateFormFile("image1", "shoe.png")
		require.NoError(t, err)
		_, err = fw.Write([]byte("image-bytes"))
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestProductRoutes(t *testing.T) {
	t.Run("list products", func(t *testing.T) {
		resp := do(t, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

		assert.Equal(t, http.StatusOK, resp.Code)
		env := decodeEnvelope(t, resp)
		assert.Equal(t, "products retrieved", env.Message)

		var products []map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &products))
		require.Len(t, products, 1)
		assert.Equal(t, "red-shoe", products[0]["slug"])
	})

	t.Run("get product by id", func(t *testing.T) {
		resp := do(t, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+knownProductID.String(), nil))
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("malformed id is a validation failure", func(t *testing.T) {
		resp := do(t, httptest.NewRequest(http.MethodGet, "/api/v1/products/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		resp := do(t, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+uuid.NewString(), nil))

		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "PRODUCT_NOT_FOUND", decodeEnvelope(t, resp).Code)
	})

	t.Run("get product by slug", func(t *testing.T) {
		resp := do(t, httptest.NewRequest(http.MethodGet, "/api/v1/products/slug/red-shoe", nil))
		assert.Equal(t, http.StatusOK, resp.Code)

		resp = do(t, httptest.NewRequest(http.MethodGet, "/api/v1/products/slug/no-such", nil))
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("create requires a token", func(t *testing.T) {
		body, contentType := productForm(t, true)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", body)
		req.Header.Set("Content-Type", contentType)

		resp := do(t, req)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, "MISSING_AUTH_HEADER", decodeEnvelope(t, resp).Code)
	})

	t.Run("create with a valid token", func(t *testing.T) {
		body, contentType := productForm(t, true)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+accessToken(t))

		resp := do(t, req)
		assert.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, "product created", decodeEnvelope(t, resp).Message)
	})

	t.Run("create with a garbage token", func(t *testing.T) {
		body, contentType := productForm(t, true)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer garbage")

		resp := do(t, req)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("delete returns no content", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/"+knownProductID.String(), nil)
		req.Header.Set("Authorization", "Bearer "+accessToken(t))

		resp := do(t, req)
		assert.Equal(t, http.StatusNoContent, resp.Code)
		assert.Empty(t, resp.Body.Bytes())
	})

	t.Run("update price", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/products/"+knownProductID.String()+"/price",
			strings.NewReader(`{"price":"24.50"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken(t))

		resp := do(t, req)
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("negative price is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/products/"+knownProductID.String()+"/price",
			strings.NewReader(`{"price":"-1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken(t))

		resp := do(t, req)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestAuthRoutes(t *testing.T) {
	t.Run("register", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
			strings.NewReader(`{"name":"Admin","email":"admin@example.com","password":"s3cret-pass"}`))
		req.Header.Set("Content-Type", "application/json")

		resp := do(t, req)
		assert.Equal(t, http.StatusCreated, resp.Code)
	})

	t.Run("register with a taken email conflicts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
			strings.NewReader(`{"name":"Admin","email":"taken@example.com","password":"s3cret-pass"}`))
		req.Header.Set("Content-Type", "application/json")

		resp := do(t, req)
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("register with a short password fails validation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
			strings.NewReader(`{"name":"Admin","email":"admin@example.com","password":"short"}`))
		req.Header.Set("Content-Type", "application/json")

		resp := do(t, req)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"email":"admin@example.com","password":"s3cret-pass"}`))
		req.Header.Set("Content-Type", "application/json")

		resp := do(t, req)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, string(decodeEnvelope(t, resp).Data), "access_token")
	})

	t.Run("login with wrong credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"email":"admin@example.com","password":"wrong"}`))
		req.Header.Set("Content-Type", "application/json")

		resp := do(t, req)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("logout without a token", func(t *testing.T) {
		resp := do(t, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("logout with a token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken(t))

		resp := do(t, req)
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("forgot password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/forgot-password",
			strings.NewReader(`{"email":"admin@example.com"}`))
		req.Header.Set("Content-Type", "application/json")

		resp := do(t, req)
		assert.Equal(t, http.StatusOK, resp.Code)
	})
}

func TestInfraRoutes(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		resp := do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		resp := do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("correlation id is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		req.Header.Set("X-Correlation-ID", "req-123")

		resp := do(t, req)
		assert.Equal(t, "req-123", resp.Header().Get("X-Correlation-ID"))
	})
}
