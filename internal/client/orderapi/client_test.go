package orderapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	operatorhttpmapper "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/http/mapper"
	orderhttpmapper "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/http/mapper"
	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	apierrors "github.com/Apurer/bakery-orders/internal/shared/errors"
)

const testToken = "jwt-token"

var pickup = time.Date(2026, 10, 20, 10, 30, 0, 0, time.UTC)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeProblem(w http.ResponseWriter, problem apierrors.Problem) {
	w.Header().Set("Content-Type", apierrors.ContentTypeProblemJSON)
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

func authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		writeProblem(w, apierrors.ErrUnauthorized.WithDetail("missing session"))
		return false
	}
	return true
}

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var creds operatorhttpmapper.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Username != "baker" || creds.Password != "rye-bread" {
			writeProblem(w, apierrors.ErrUnauthorized.WithDetail("invalid credentials"))
			return
		}
		writeJSON(w, http.StatusOK, operatorhttpmapper.Session{
			Token: testToken, Username: "baker", ExpiresAt: time.Now().Add(time.Hour),
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return client
}

func login(t *testing.T, client *Client) {
	t.Helper()
	_, err := client.Login(context.Background(), "baker", "rye-bread")
	require.NoError(t, err)
	require.True(t, client.Session().Authenticated())
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestLogin_StoresSessionAndAuthenticatesRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		assert.Equal(t, "7", r.PathValue("id"))
		writeJSON(w, http.StatusOK, orderhttpmapper.Order{ID: 7, ClientName: "Ivan Petrov", PickupAt: pickup})
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	_, err := client.GetOrder(ctx, 7)
	require.ErrorIs(t, err, ErrUnauthorized)

	login(t, client)
	assert.Equal(t, "baker", client.Session().Username())

	order, err := client.GetOrder(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), order.ID)
	assert.True(t, pickup.Equal(order.PickupAt))
}

func TestLogin_BadCredentials(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())

	_, err := client.Login(context.Background(), "baker", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "invalid credentials", apiErr.Problem.Detail)
	assert.False(t, client.Session().Authenticated())
}

func TestUnauthorizedResponseClearsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orders", func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, apierrors.ErrUnauthorized.WithDetail("session revoked"))
	})
	client := newTestClient(t, mux)
	login(t, client)

	_, err := client.Upcoming(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, client.Session().Authenticated())
	assert.Empty(t, client.Session().Token())
}

func TestOrdersForDay_SendsDateAndFlattensGroup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orders", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		assert.Equal(t, "2026-10-20", r.URL.Query().Get("date"))
		writeJSON(w, http.StatusOK, [][]orderhttpmapper.Order{{
			{ID: 1, ClientName: "Ivan Petrov", PickupAt: pickup},
			{ID: 2, ClientName: "Maria Ivanova", PickupAt: pickup.Add(time.Hour)},
		}})
	})
	client := newTestClient(t, mux)
	login(t, client)

	orders, err := client.OrdersForDay(context.Background(), pickup)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(2), orders[1].ID)
}

func TestOrdersForDay_EmptyDay(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, [][]orderhttpmapper.Order{})
	})
	client := newTestClient(t, mux)

	orders, err := client.OrdersForDay(context.Background(), pickup)
	require.NoError(t, err)
	require.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestUpcoming_KeepsGroups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		writeJSON(w, http.StatusOK, [][]orderhttpmapper.Order{
			{{ID: 1, PickupAt: pickup}},
			{{ID: 2, PickupAt: pickup.AddDate(0, 0, 1)}, {ID: 3, PickupAt: pickup.AddDate(0, 0, 1)}},
		})
	})
	client := newTestClient(t, mux)

	groups, err := client.Upcoming(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[1], 2)
}

func TestCreateOrder_SendsIdempotencyKey(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		assert.Equal(t, "draft-01", r.Header.Get(IdempotencyKeyHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload orderhttpmapper.Order
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Zero(t, payload.ID)
		require.Len(t, payload.Lines, 1)
		require.NotNil(t, payload.Lines[0].Cake)
		payload.ID = 41
		writeJSON(w, http.StatusCreated, payload)
	})
	client := newTestClient(t, mux)
	login(t, client)

	created, err := client.CreateOrder(context.Background(), &ordersdomain.Order{
		ClientName: "Ivan Petrov",
		PickupAt:   pickup,
		Lines: []ordersdomain.Line{{
			ProductID: 4, Category: "Торти", Quantity: 1,
			Cake: &ordersdomain.CakeDetails{Inscription: "Наздраве"},
		}},
	}, "draft-01")
	require.NoError(t, err)
	assert.Equal(t, int64(41), created.ID)
	assert.Equal(t, "Наздраве", created.Lines[0].Cake.Inscription)
}

func TestCreateOrder_RejectsPersistedOrder(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())

	_, err := client.CreateOrder(context.Background(), &ordersdomain.Order{ID: 3}, "")
	require.Error(t, err)
}

func TestCreateOrder_ValidationProblem(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, apierrors.NewValidationProblem("order rejected", "quantity must be positive"))
	})
	client := newTestClient(t, mux)

	_, err := client.CreateOrder(context.Background(), &ordersdomain.Order{ClientName: "Ivan"}, "")
	require.ErrorIs(t, err, ErrValidation)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []string{"quantity must be positive"}, apiErr.Violations())
	assert.Equal(t, apierrors.TypeValidation, apiErr.Problem.Type)
}

func TestUpdateOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12", r.PathValue("id"))
		var payload orderhttpmapper.Order
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		writeJSON(w, http.StatusOK, payload)
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	updated, err := client.UpdateOrder(ctx, &ordersdomain.Order{ID: 12, ClientName: "Ivan Petrov", PickupAt: pickup})
	require.NoError(t, err)
	assert.Equal(t, "Ivan Petrov", updated.ClientName)

	_, err = client.UpdateOrder(ctx, &ordersdomain.Order{ClientName: "no id"})
	require.Error(t, err)
}

func TestDeleteOrder(t *testing.T) {
	deleted := 0
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "5" {
			writeProblem(w, apierrors.NewNotFoundProblem("order", r.PathValue("id")))
			return
		}
		deleted++
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	require.NoError(t, client.DeleteOrder(ctx, 5))
	assert.Equal(t, 1, deleted)

	err := client.DeleteOrder(ctx, 6)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateLineProgress(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/orders/{id}/lines/{lineId}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.PathValue("id"))
		assert.Equal(t, "9", r.PathValue("lineId"))
		var progress orderhttpmapper.LineProgress
		require.NoError(t, json.NewDecoder(r.Body).Decode(&progress))
		require.NotNil(t, progress.Complete)
		assert.Nil(t, progress.InProgress)
		writeJSON(w, http.StatusOK, orderhttpmapper.Order{ID: 3, Lines: []orderhttpmapper.Line{{ID: 9, Complete: *progress.Complete}}})
	})
	client := newTestClient(t, mux)

	yes := true
	updated, err := client.UpdateLineProgress(context.Background(), 3, 9, orderhttpmapper.LineProgress{Complete: &yes})
	require.NoError(t, err)
	assert.True(t, updated.Lines[0].Complete)
}

func TestProducts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []orderhttpmapper.Product{
			{ID: 4, Code: "301", Name: "Торта", Category: "Торти", IsCake: true},
		})
	})
	client := newTestClient(t, mux)

	products, err := client.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].IsCake())
}

func TestLogout_ClearsSessionEvenOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})
	client := newTestClient(t, mux)
	login(t, client)

	err := client.Logout(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Problem.Detail)
	assert.False(t, client.Session().Authenticated())

	require.NoError(t, client.Logout(context.Background()))
}

func TestSession_Expiry(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	session := NewSession("tok", "baker", now.Add(time.Minute))
	session.now = func() time.Time { return now }
	assert.True(t, session.Authenticated())

	session.now = func() time.Time { return now.Add(2 * time.Minute) }
	assert.False(t, session.Authenticated())

	assert.True(t, NewSession("tok", "baker", time.Time{}).Authenticated())
	assert.False(t, (&Session{}).Authenticated())
}
