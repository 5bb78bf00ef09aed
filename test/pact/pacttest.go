//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

const (
	ProviderName = "bakery-orders-api"
	ConsumerName = "bakery-board"

	StateOperatorExists = "operator baker exists"
	StateOrdersBaseline = "orders baseline"
	StateOrderExists    = "order with id 301 exists"
	StateOrderMissing   = "no order with id 999"
)

const (
	ExistingOrderID int64 = 301
	MissingOrderID  int64 = 999

	OperatorUsername = "baker"
	OperatorPassword = "rye-bread"

	// ExampleToken stands in for the issued JWT; the provider swaps in a real one.
	ExampleToken = "pact-session-token"
)

var examplePickup = time.Date(2026, 10, 20, 7, 30, 0, 0, time.UTC)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the pact file path for the board consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleOrder is the order both sides agree on for the existing-order state.
func ExampleOrder() *ordersdomain.Order {
	return &ordersdomain.Order{
		ID:             ExistingOrderID,
		PickupAt:       examplePickup,
		ClientName:     "Maria Ivanova",
		ClientPhone:    "+359888123456",
		AdvancePayment: 20,
		CreatedAt:      examplePickup.Add(-48 * time.Hour),
		Lines: []ordersdomain.Line{
			{ID: 1, ProductID: 1, Category: "Хляб", Quantity: 2},
			{ID: 2, ProductID: 4, Category: "Торти", Quantity: 1, Cake: &ordersdomain.CakeDetails{Inscription: "Честит рожден ден"}},
		},
	}
}

// ExampleNewOrder is the unsaved order the board submits.
func ExampleNewOrder() *ordersdomain.Order {
	return &ordersdomain.Order{
		PickupAt:   examplePickup.Add(24 * time.Hour),
		ClientName: "Ivan Petrov",
		Lines: []ordersdomain.Line{
			{ProductID: 3, Quantity: 1.5, Note: "без лук"},
		},
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
