package bakeryserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	operatormemory "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/memory"
	operatorsapp "github.com/Apurer/bakery-orders/internal/domains/operators/application"
	orderhttpmapper "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/http/mapper"
	ordersmemory "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/memory"
	ordersworkflows "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/Apurer/bakery-orders/internal/domains/orders/application"
	"github.com/Apurer/bakery-orders/internal/platform/realtime"
	"github.com/Apurer/bakery-orders/internal/shared/syncproto"
	apierrors "github.com/Apurer/bakery-orders/internal/shared/errors"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type testApp struct {
	router *gin.Engine
	hub    *realtime.Hub
	token  string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := realtime.NewHub()
	t.Cleanup(hub.Close)

	orders := ordersapp.NewService(ordersmemory.NewRepository(), ordersmemory.NewCatalog(ordersmemory.DefaultProducts()...),
		ordersapp.WithNotifier(hub))
	workflows := ordersworkflows.NewInlineOrderWorkflows(orders, ordersmemory.NewIdempotencyStore())

	issuer, err := operatorsapp.NewTokenIssuer([]byte("test-secret"), time.Hour)
	require.NoError(t, err)
	operators := operatorsapp.NewService(operatormemory.NewRepository(), operatormemory.NewSessionStore(), issuer)
	_, err = operators.Register(context.Background(), "baker", "Baker", "rye-bread")
	require.NoError(t, err)

	router := NewRouterWithGinEngine(gin.New(), ApiHandleFunctions{
		OrdersAPI:    NewOrdersAPI(orders, workflows, WithLocation(time.UTC), WithNow(func() time.Time { return testNow })),
		OperatorsAPI: NewOperatorsAPI(operators),
		EventsAPI:    NewEventsAPI(hub),
	})
	app := &testApp{router: router, hub: hub}

	rec := app.do(t, http.MethodPost, "/api/login", map[string]string{"username": "Baker", "password": "rye-bread"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)
	app.token = session.Token
	return app
}

func (a *testApp) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) authed(extra ...string) http.Header {
	h := http.Header{"Authorization": []string{"Bearer " + a.token}}
	for i := 0; i+1 < len(extra); i += 2 {
		h.Set(extra[i], extra[i+1])
	}
	return h
}

func sampleOrder(pickup time.Time) orderhttpmapper.Order {
	return orderhttpmapper.Order{
		ClientName: "Maria Ivanova",
		PickupAt:   pickup,
		Lines: []orderhttpmapper.Line{
			{ProductID: 1, Quantity: 2},
			{ProductID: 4, Quantity: 1, Cake: &orderhttpmapper.CakeDetails{Inscription: "Честит имен ден"}},
		},
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierrors.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))

	rec = app.do(t, http.MethodGet, "/api/orders", nil, http.Header{"Authorization": []string{"Bearer forged.token.value"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/products", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]orderhttpmapper.Product](t, rec)
	assert.Len(t, products, 5)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodPost, "/api/login", map[string]string{"username": "baker", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodPost, "/api/logout", nil, app.authed())
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/orders", nil, app.authed())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderLifecycle(t *testing.T) {
	app := newTestApp(t)
	pickup := time.Date(2026, 10, 21, 10, 30, 0, 0, time.UTC)

	rec := app.do(t, http.MethodPost, "/api/orders", sampleOrder(pickup), app.authed())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[orderhttpmapper.Order](t, rec)
	require.NotZero(t, created.ID)
	assert.Equal(t, "Хляб", created.Lines[0].Category)
	require.NotNil(t, created.Lines[1].Cake)

	path := "/api/orders/" + itoa(created.ID)
	rec = app.do(t, http.MethodGet, path, nil, app.authed())
	require.Equal(t, http.StatusOK, rec.Code)

	update := created
	update.ClientPhone = "0888 000 111"
	rec = app.do(t, http.MethodPut, path, update, app.authed())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "0888 000 111", decode[orderhttpmapper.Order](t, rec).ClientPhone)

	done := true
	rec = app.do(t, http.MethodPatch, path+"/lines/"+itoa(created.Lines[0].ID), orderhttpmapper.LineProgress{Complete: &done}, app.authed())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[orderhttpmapper.Order](t, rec).Lines[0].Complete)

	rec = app.do(t, http.MethodPatch, path+"/lines/9999", orderhttpmapper.LineProgress{Complete: &done}, app.authed())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodDelete, path, nil, app.authed())
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(t, http.MethodGet, path, nil, app.authed())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrderValidationProblem(t *testing.T) {
	app := newTestApp(t)
	order := sampleOrder(testNow)
	order.ClientName = "Ив"

	rec := app.do(t, http.MethodPost, "/api/orders", order, app.authed())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decode[map[string]any](t, rec)
	assert.Equal(t, apierrors.TypeValidation, problem["type"])
	assert.Equal(t, []any{"client name must be at least 3 characters"}, problem["violations"])
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	app := newTestApp(t)
	order := sampleOrder(testNow.Add(48 * time.Hour))

	first := app.do(t, http.MethodPost, "/api/orders", order, app.authed(IdempotencyKeyHeader, "k-1"))
	require.Equal(t, http.StatusCreated, first.Code)
	second := app.do(t, http.MethodPost, "/api/orders", order, app.authed(IdempotencyKeyHeader, "k-1"))
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, decode[orderhttpmapper.Order](t, first).ID, decode[orderhttpmapper.Order](t, second).ID)

	order.Lines[0].Quantity = 5
	conflict := app.do(t, http.MethodPost, "/api/orders", order, app.authed(IdempotencyKeyHeader, "k-1"))
	assert.Equal(t, http.StatusConflict, conflict.Code)
}

func TestListOrdersGroupsByDay(t *testing.T) {
	app := newTestApp(t)
	day := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{day.Add(14 * time.Hour), day.Add(8 * time.Hour), day.AddDate(0, 0, 1).Add(9 * time.Hour)} {
		rec := app.do(t, http.MethodPost, "/api/orders", sampleOrder(at), app.authed())
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := app.do(t, http.MethodGet, "/api/orders?date=2026-10-20", nil, app.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	groups := decode[[][]orderhttpmapper.Order](t, rec)
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 2)
	assert.True(t, groups[0][0].PickupAt.Before(groups[0][1].PickupAt))

	rec = app.do(t, http.MethodGet, "/api/orders?date=2026-12-01", nil, app.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/orders", nil, app.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[][]orderhttpmapper.Order](t, rec), 2)

	rec = app.do(t, http.MethodGet, "/api/orders?date=20.10.2026", nil, app.authed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsBroadcastOnMutation(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events?access_token=" + app.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return app.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := app.do(t, http.MethodPost, "/api/orders", sampleOrder(testNow), app.authed())
	require.Equal(t, http.StatusCreated, rec.Code)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame syncproto.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, syncproto.MethodUpdateOrders, frame.Type)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/events", nil)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
