package internalgrpc

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Fuchsoria/couponslots/internal/app"
	"github.com/Fuchsoria/couponslots/internal/logger"
	memorystorage "github.com/Fuchsoria/couponslots/internal/storage/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	application := app.New(logger.Wrap(zap.NewNop()), memorystorage.New(), nil)

	server, err := NewServer(application, "127.0.0.1", "0", "0")
	require.NoError(t, err)

	return server.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func doUpload(t *testing.T, h http.Handler, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)

	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	return out
}

func createStore(t *testing.T, h http.Handler, body StoreRequest) string {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/admin/stores/create", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	return decode[IDResponse](t, rec).ID
}

func TestLayoutRoutes(t *testing.T) {
	t.Run("test conflict needs confirmation", func(t *testing.T) {
		h := newTestServer(t)
		first := createStore(t, h, StoreRequest{Name: "Acme", IsTrending: true, LayoutPosition: intPtr(2)})
		second := createStore(t, h, StoreRequest{Name: "Globex"})

		rec := doJSON(t, h, http.MethodPost, "/api/v1/admin/layout/trending-stores/assign", AssignRequest{ID: second, Position: intPtr(2)})
		require.Equal(t, http.StatusConflict, rec.Code)

		conflict := decode[ConflictResponse](t, rec)
		require.Equal(t, first, conflict.Occupant.ID)
		require.Equal(t, "Acme", conflict.Occupant.Label)

		rec = doJSON(t, h, http.MethodPost, "/api/v1/admin/layout/trending-stores/assign",
			AssignRequest{ID: second, Position: intPtr(2), ConfirmReplace: true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doJSON(t, h, http.MethodGet, "/api/v1/layout/trending-stores", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		board := decode[BoardResponse](t, rec)
		require.Equal(t, 8, board.Slots)
		require.Len(t, board.Occupants, 1)
		require.Equal(t, second, board.Occupants[0].ID)
	})

	t.Run("test create with taken slot is refused whole", func(t *testing.T) {
		h := newTestServer(t)
		createStore(t, h, StoreRequest{Name: "Acme", IsTrending: true, LayoutPosition: intPtr(1)})

		rec := doJSON(t, h, http.MethodPost, "/api/v1/admin/stores/create", StoreRequest{Name: "Globex", LayoutPosition: intPtr(1)})
		require.Equal(t, http.StatusConflict, rec.Code)

		rec = doJSON(t, h, http.MethodGet, "/api/v1/admin/stores/list", nil)
		require.Len(t, decode[[]json.RawMessage](t, rec), 1)
	})

	t.Run("test out of range and unknown context", func(t *testing.T) {
		h := newTestServer(t)
		id := createStore(t, h, StoreRequest{Name: "Acme"})

		rec := doJSON(t, h, http.MethodPost, "/api/v1/admin/layout/trending-stores/assign", AssignRequest{ID: id, Position: intPtr(9)})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, decode[MessageResponse](t, rec).Message, "out of range")

		rec = doJSON(t, h, http.MethodGet, "/api/v1/layout/sidebar", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("test flag off clears slot", func(t *testing.T) {
		h := newTestServer(t)
		id := createStore(t, h, StoreRequest{Name: "Acme", IsTrending: true, LayoutPosition: intPtr(3)})

		off := false
		rec := doJSON(t, h, http.MethodPost, "/api/v1/admin/layout/trending-stores/flag", FlagRequest{ID: id, Enabled: &off})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doJSON(t, h, http.MethodGet, "/api/v1/admin/stores/"+id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"layout_position":null`)
	})

	t.Run("test flag requires enabled", func(t *testing.T) {
		h := newTestServer(t)

		rec := doJSON(t, h, http.MethodPost, "/api/v1/admin/layout/banners/flag", map[string]string{"id": "x"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEntityRoutes(t *testing.T) {
	t.Run("test validation and not found", func(t *testing.T) {
		h := newTestServer(t)

		rec := doJSON(t, h, http.MethodPost, "/api/v1/admin/banners/create", BannerRequest{ImageURL: "not a url"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, h, http.MethodGet, "/api/v1/admin/banners/missing", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.NotEmpty(t, decode[MessageResponse](t, rec).Message)
	})

	t.Run("test coupon lifecycle", func(t *testing.T) {
		h := newTestServer(t)
		storeID := createStore(t, h, StoreRequest{Name: "Acme"})

		rec := doJSON(t, h, http.MethodPost, "/api/v1/admin/coupons/create", CouponRequest{StoreID: storeID, Code: "SAVE10"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		id := decode[IDResponse](t, rec).ID

		rec = doJSON(t, h, http.MethodPut, "/api/v1/admin/coupons/"+id, CouponRequest{StoreID: storeID, Title: "Ten off", IsLatest: true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doJSON(t, h, http.MethodGet, "/api/v1/admin/coupons/"+id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"title":"Ten off"`)
		require.Contains(t, rec.Body.String(), `"is_latest":true`)
	})

	t.Run("test put replaces slot fields", func(t *testing.T) {
		h := newTestServer(t)
		id := createStore(t, h, StoreRequest{Name: "Acme", IsTrending: true, LayoutPosition: intPtr(3)})

		rec := doJSON(t, h, http.MethodPut, "/api/v1/admin/stores/"+id, StoreRequest{Name: "Acme Inc", IsTrending: true, LayoutPosition: intPtr(3)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doJSON(t, h, http.MethodGet, "/api/v1/admin/stores/"+id, nil)
		require.Contains(t, rec.Body.String(), `"layout_position":3`)

		rec = doJSON(t, h, http.MethodPut, "/api/v1/admin/stores/"+id, StoreRequest{Name: "Acme Inc", IsTrending: true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doJSON(t, h, http.MethodGet, "/api/v1/admin/stores/"+id, nil)
		require.Contains(t, rec.Body.String(), `"layout_position":null`)
		require.Contains(t, rec.Body.String(), `"is_trending":true`)
	})
}

func TestImportRoutes(t *testing.T) {
	t.Run("test preview then import", func(t *testing.T) {
		h := newTestServer(t)
		createStore(t, h, StoreRequest{Name: "Acme"})

		csv := "Store Name,title,code\nAcme,Ten off,TEN\nNobody,Lost,LOST\n"

		rec := doUpload(t, h, "/api/v1/admin/coupons/import/preview", "deals.csv", csv)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Contains(t, rec.Body.String(), `"dropped":1`)

		rec = doUpload(t, h, "/api/v1/admin/coupons/import", "deals.csv", csv)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		report := decode[app.ImportReport](t, rec)
		require.Equal(t, 1, report.Inserted)
		require.Equal(t, 1, report.Dropped)
	})

	t.Run("test missing column is a client error", func(t *testing.T) {
		h := newTestServer(t)

		rec := doUpload(t, h, "/api/v1/admin/coupons/import", "deals.csv", "title\nA\n")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, decode[MessageResponse](t, rec).Message, "Store Name")
	})

	t.Run("test unknown entity and format", func(t *testing.T) {
		h := newTestServer(t)

		rec := doUpload(t, h, "/api/v1/admin/banners/import", "a.csv", "title\nA\n")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doUpload(t, h, "/api/v1/admin/stores/import", "a.pdf", "%PDF")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("test columns and template", func(t *testing.T) {
		h := newTestServer(t)

		rec := doJSON(t, h, http.MethodGet, "/api/v1/admin/stores/import/columns", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"name":"name"`)

		rec = doJSON(t, h, http.MethodGet, "/api/v1/admin/coupons/import/template", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, strings.HasPrefix(rec.Body.String(), "store_id,Store Name,"))
		require.Contains(t, rec.Header().Get("Content-Disposition"), "coupons_template.csv")
	})
}

func TestMetricsRoute(t *testing.T) {
	h := newTestServer(t)

	doJSON(t, h, http.MethodGet, "/api/v1/admin/banners/list", nil)

	rec := doJSON(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "couponslots_http_requests_total")
}

func intPtr(v int) *int {
	return &v
}
