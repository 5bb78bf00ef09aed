//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/stretchr/testify/require"

	bakeryserver "github.com/Apurer/bakery-orders/go"
	operatormemory "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/memory"
	operatorsobs "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/observability"
	operatorsapp "github.com/Apurer/bakery-orders/internal/domains/operators/application"
	ordersmemory "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/memory"
	ordersobs "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/observability"
	ordersworkflows "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/Apurer/bakery-orders/internal/domains/orders/application"
	"github.com/Apurer/bakery-orders/internal/platform/realtime"
	pacttest "github.com/Apurer/bakery-orders/test/pact"
)

func TestOrdersProviderPact(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	verifier := pactprovider.NewVerifier()
	stateHandlers := models.StateHandlers{
		pacttest.StateOperatorExists: func(bool, models.ProviderState) (models.ProviderStateResponse, error) {
			return nil, nil
		},
		pacttest.StateOrdersBaseline: func(bool, models.ProviderState) (models.ProviderStateResponse, error) {
			app.orders.Reset()
			return nil, nil
		},
		pacttest.StateOrderExists: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.orders.Reset()
			if setup {
				app.orders.Seed(pacttest.ExampleOrder())
			}
			return nil, nil
		},
		pacttest.StateOrderMissing: func(bool, models.ProviderState) (models.ProviderStateResponse, error) {
			app.orders.Reset()
			return nil, nil
		},
	}

	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers:   stateHandlers,
		BeforeEach: func() error {
			app.orders.Reset()
			return nil
		},
		RequestFilter: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "" {
					r.Header.Set("Authorization", "Bearer "+app.token)
				}
				next.ServeHTTP(w, r)
			})
		},
	})
	require.NoError(t, err)
}

type contractProviderApp struct {
	orders *ordersmemory.Repository
	server *httptest.Server
	token  string
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	ctx := context.Background()

	hub := realtime.NewHub()
	t.Cleanup(hub.Close)

	orderRepo := ordersmemory.NewRepository()
	orderService := ordersobs.New(ordersapp.NewService(orderRepo,
		ordersmemory.NewCatalog(ordersmemory.DefaultProducts()...), ordersapp.WithNotifier(hub)))
	workflows := ordersworkflows.NewInlineOrderWorkflows(orderService, ordersmemory.NewIdempotencyStore())

	issuer, err := operatorsapp.NewTokenIssuer([]byte("pact-secret"), 24*time.Hour)
	require.NoError(t, err)
	operatorService := operatorsobs.New(operatorsapp.NewService(operatormemory.NewRepository(), operatormemory.NewSessionStore(), issuer))
	_, err = operatorService.Register(ctx, pacttest.OperatorUsername, "Baker", pacttest.OperatorPassword)
	require.NoError(t, err)
	session, err := operatorService.Login(ctx, pacttest.OperatorUsername, pacttest.OperatorPassword)
	require.NoError(t, err)

	handlers := bakeryserver.ApiHandleFunctions{
		OrdersAPI:    bakeryserver.NewOrdersAPI(orderService, workflows),
		OperatorsAPI: bakeryserver.NewOperatorsAPI(operatorService),
		EventsAPI:    bakeryserver.NewEventsAPI(hub),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router = bakeryserver.NewRouterWithGinEngine(router, handlers)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &contractProviderApp{
		orders: orderRepo,
		server: server,
		token:  session.Token,
	}
}
