package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coderr-service/internal/auth"
	"coderr-service/internal/config"
	"coderr-service/internal/repository/repotest"
	"coderr-service/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *repotest.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repotest.New()
	logger := zerolog.Nop()
	catalog := config.CatalogConfig{PageSize: 6, MaxPageSize: 100}

	svc := Services{
		Auth:     service.NewAuthService(store.Users(), store.Tokens(), auth.NewTokens("router-test"), logger),
		Profiles: service.NewProfileService(store.Users(), store.Profiles(), logger),
		Offers:   service.NewOfferService(store.Offers(), catalog, logger),
		Orders:   service.NewOrderService(store.Orders(), store.Offers(), store.Users(), logger),
		Reviews:  service.NewReviewService(store.Reviews(), store.Users(), logger),
		Stats:    service.NewStatsService(store.Stats()),
	}
	h := NewRouter(svc, RouterConfig{
		HTTP:   config.HTTPConfig{RequestTimeout: 5 * time.Second, RateLimitRPS: 100, RateLimitBurst: 100},
		DB:     stubPinger{},
		Logger: logger,
	})
	return &testServer{t: t, handler: h, store: store}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type session struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}

func (s *testServer) register(username, role string) session {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/registration/", "", map[string]string{
		"username":          username,
		"email":             username + "@mail.de",
		"password":          "examplePassword",
		"repeated_password": "examplePassword",
		"type":              role,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[session](s.t, rec)
}

// staff accounts are only created out of band
func (s *testServer) staff(username string) session {
	s.t.Helper()
	id := s.store.AddUser(username, "customer", true)
	token, err := auth.NewTokens("router-test").Mint(id)
	require.NoError(s.t, err)
	s.store.SetToken(id, token)
	return session{Token: token, UserID: id}
}

func offerBody() map[string]any {
	detail := func(kind string, price float64, days int) map[string]any {
		return map[string]any{
			"title":                 "Design " + kind,
			"revisions":             2,
			"delivery_time_in_days": days,
			"price":                 price,
			"features":              []string{"Logo Design", "Visitenkarte"},
			"offer_type":            kind,
		}
	}
	return map[string]any{
		"title":       "Grafikdesign-Paket",
		"image":       "",
		"description": "Ein umfassendes Grafikdesign-Paket für Unternehmen.",
		"details": []any{
			detail("basic", 100, 5),
			detail("standard", 200, 7),
			detail("premium", 500, 10),
		},
	}
}

type errorBody struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details"`
}

func TestRegistrationAndLogin(t *testing.T) {
	s := newTestServer(t)
	created := s.register("exampleUsername", "customer")
	assert.NotEmpty(t, created.Token)

	rec := s.do(http.MethodPost, "/api/login", "", map[string]string{"username": "exampleUsername", "password": "examplePassword"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Token, decode[session](t, rec).Token)

	rec = s.do(http.MethodPost, "/api/login/", "", map[string]string{"username": "exampleUsername", "password": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid credentials.", decode[errorBody](t, rec).Message)

	rec = s.do(http.MethodPost, "/api/registration/", "", map[string]string{
		"username":          "exampleUsername",
		"email":             "other@mail.de",
		"password":          "a",
		"repeated_password": "b",
		"type":              "customer",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "validation_error", body.Error)
	assert.Contains(t, body.Details, "username")
	assert.Contains(t, body.Details, "password")

	rec = s.do(http.MethodPost, "/api/logout/", created.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/orders/", created.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMalformedBodies(t *testing.T) {
	s := newTestServer(t)

	for name, body := range map[string]string{
		"syntax":        `{"username":`,
		"unknown field": `{"username":"a","password":"b","admin":true}`,
		"trailing data": `{"username":"a","password":"b"} {}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/login/", "", body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			got := decode[errorBody](t, rec)
			assert.Equal(t, "bad_request", got.Error)
			assert.NotEmpty(t, got.Details["body"])
		})
	}
}

func TestProfileEndpoints(t *testing.T) {
	s := newTestServer(t)
	biz := s.register("biz", "business")
	cust := s.register("cust", "customer")

	path := fmt.Sprintf("/api/profile/%d/", biz.UserID)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, path, "", nil).Code)

	rec := s.do(http.MethodGet, path, cust.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "business", decode[map[string]any](t, rec)["type"])

	rec = s.do(http.MethodPatch, path, cust.Token, map[string]string{"first_name": "Evil"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPatch, path, biz.Token, map[string]string{"first_name": "Max", "tel": "0123456789", "location": "Berlin"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Max", decode[map[string]any](t, rec)["first_name"])

	rec = s.do(http.MethodGet, "/api/profile/999/", biz.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/profiles/business/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)
}

func TestOfferEndpoints(t *testing.T) {
	s := newTestServer(t)
	biz := s.register("biz", "business")
	cust := s.register("cust", "customer")

	rec := s.do(http.MethodPost, "/api/offers/", cust.Token, offerBody())
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodPost, "/api/offers/", "", offerBody())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var offerID int64
	for range 2 {
		rec = s.do(http.MethodPost, "/api/offers/", biz.Token, offerBody())
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		view := decode[map[string]any](t, rec)
		offerID = int64(view["id"].(float64))
		assert.Len(t, view["details"], 3)
		assert.Equal(t, float64(100), view["min_price"])
	}

	rec = s.do(http.MethodGet, "/api/offers/?page_size=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[map[string]any](t, rec)
	assert.Equal(t, float64(2), page["count"])
	assert.Equal(t, "http://example.com/api/offers/?page=2&page_size=1", page["next"])
	assert.Nil(t, page["previous"])
	results := page["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	links := first["details"].([]any)
	require.Len(t, links, 3)
	assert.Contains(t, links[0].(map[string]any)["url"], "/offerdetails/")
	assert.Equal(t, "biz", first["user_details"].(map[string]any)["username"])

	rec = s.do(http.MethodGet, "/api/offers/?page=9", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Invalid page.", decode[errorBody](t, rec).Message)

	rec = s.do(http.MethodGet, "/api/offers/?min_price=cheap", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Details, "min_price")

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/offers/%d/", offerID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[map[string]any](t, rec)
	detail := view["details"].([]any)[0].(map[string]any)
	detailID := int64(detail["id"].(float64))

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/offerdetails/%d/", detailID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "basic", decode[map[string]any](t, rec)["offer_type"])

	rec = s.do(http.MethodPatch, fmt.Sprintf("/api/offers/%d/", offerID), biz.Token, map[string]any{
		"title":   "Updated Grafikdesign-Paket",
		"details": []any{map[string]any{"id": detailID, "price": 120}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Updated Grafikdesign-Paket", decode[map[string]any](t, rec)["title"])

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/offers/%d/", offerID), cust.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/offers/%d/", offerID), biz.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/offers/%d/", offerID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/offers/abc/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderEndpoints(t *testing.T) {
	s := newTestServer(t)
	biz := s.register("biz", "business")
	cust := s.register("cust", "customer")
	admin := s.staff("admin")

	rec := s.do(http.MethodPost, "/api/offers/", biz.Token, offerBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	details := decode[map[string]any](t, rec)["details"].([]any)
	detailID := int64(details[0].(map[string]any)["id"].(float64))

	rec = s.do(http.MethodPost, "/api/orders/", biz.Token, map[string]any{"offer_detail_id": detailID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/orders/", cust.Token, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Details, "offer_detail_id")

	rec = s.do(http.MethodPost, "/api/orders/", cust.Token, map[string]any{"offer_detail_id": 9999})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/orders/", cust.Token, map[string]any{"offer_detail_id": detailID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[map[string]any](t, rec)
	orderPath := fmt.Sprintf("/api/orders/%d/", int64(order["id"].(float64)))
	assert.Equal(t, "in_progress", order["status"])
	assert.Equal(t, float64(biz.UserID), order["business_user"])

	rec = s.do(http.MethodPut, orderPath, biz.Token, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Full updates are not allowed. Use PATCH to update specific fields.", decode[errorBody](t, rec).Message)

	rec = s.do(http.MethodPatch, orderPath, biz.Token, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decode[map[string]any](t, rec)["status"])

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/completed-order-count/%d/", biz.UserID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, rec)["completed_order_count"])

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/order-count/%d/", cust.UserID), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodGet, "/api/order-count/9999/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/orders/", cust.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = s.do(http.MethodDelete, orderPath, cust.Token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Only admins can delete orders.", decode[errorBody](t, rec).Message)

	rec = s.do(http.MethodDelete, orderPath, admin.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestReviewEndpointsAndBaseInfo(t *testing.T) {
	s := newTestServer(t)
	biz := s.register("biz", "business")
	cust := s.register("cust", "customer")

	rec := s.do(http.MethodGet, "/api/base-info/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[map[string]any](t, rec)
	assert.Equal(t, float64(0), info["average_rating"])
	assert.Equal(t, float64(1), info["business_profile_count"])

	body := map[string]any{"business_user": biz.UserID, "rating": 4, "description": "Alles war toll!"}
	rec = s.do(http.MethodPost, "/api/reviews/", biz.Token, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/reviews/", cust.Token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reviewPath := fmt.Sprintf("/api/reviews/%d/", int64(decode[map[string]any](t, rec)["id"].(float64)))

	rec = s.do(http.MethodPost, "/api/reviews/", cust.Token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/reviews/?ordering=-rating", biz.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = s.do(http.MethodPatch, reviewPath, cust.Token, map[string]any{"rating": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), decode[map[string]any](t, rec)["rating"])

	rec = s.do(http.MethodGet, "/api/base-info", "", nil)
	assert.Equal(t, float64(5), decode[map[string]any](t, rec)["average_rating"])

	rec = s.do(http.MethodDelete, reviewPath, biz.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodDelete, reviewPath, cust.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOperationalRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coderr_http_requests_total")

	rec = s.do(http.MethodGet, "/api/nowhere/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Error)

	rec = s.do(http.MethodDelete, "/api/base-info/", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	got := decode[errorBody](t, rec)
	assert.Equal(t, "method_not_allowed", got.Error)
	assert.Equal(t, "Method not allowed.", got.Message)

	down := NewRouter(Services{}, RouterConfig{
		HTTP:   config.HTTPConfig{RateLimitRPS: 1, RateLimitBurst: 1},
		DB:     stubPinger{err: errors.New("connection refused")},
		Logger: zerolog.Nop(),
	})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
