package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runNATSServer(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: server.RANDOM_PORT, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "nats server not ready")
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}

func TestNATSRelayDeliversToOtherInstancesOnly(t *testing.T) {
	url := runNATSServer(t)

	a, err := ConnectNATS(url, "test.orders", nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := ConnectNATS(url, "test.orders", nil)
	require.NoError(t, err)
	defer b.Close()

	gotA := make(chan string, 4)
	gotB := make(chan string, 4)
	require.NoError(t, a.Subscribe(func(token string) { gotA <- token }))
	require.NoError(t, b.Subscribe(func(token string) { gotB <- token }))

	require.NoError(t, a.Publish(context.Background(), "01J0000000000000000000000A"))

	select {
	case token := <-gotB:
		assert.Equal(t, "01J0000000000000000000000A", token)
	case <-time.After(2 * time.Second):
		t.Fatal("token not relayed")
	}
	select {
	case token := <-gotA:
		t.Fatalf("relay echoed its own token %q", token)
	case <-time.After(100 * time.Millisecond):
	}

	require.Error(t, a.Subscribe(func(string) {}))
}
