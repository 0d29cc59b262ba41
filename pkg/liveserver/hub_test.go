package liveserver

import (
	"context"
	"testing"
	"time"

	"dex_trader/pkg/logging"
	"dex_trader/pkg/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case msg := <-client.GetSendChan():
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := runHub(t)
	client := NewClient("c1")

	hub.Register(client)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return telemetry.GetGlobalMetrics().GetHubClients() == 1 }, time.Second, 10*time.Millisecond)

	hub.Unregister(client)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	_, ok := <-client.GetSendChan()
	assert.False(t, ok, "send channel closes on unregister")
	assert.False(t, client.Send(NewMessage(TypeGasPrice, "1")))
}

func TestHub_BroadcastScopedByMarket(t *testing.T) {
	hub := runHub(t)

	btc := NewClient("btc")
	btc.Watch("0xbtc")
	eth := NewClient("eth")
	eth.Watch("0xeth")
	hub.Register(btc)
	hub.Register(eth)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(NewMarketMessage(TypeOrderbook, "0xbtc", "book"))
	hub.Broadcast(NewMessage(TypeGasPrice, "160000000"))

	msg := receive(t, btc)
	assert.Equal(t, TypeOrderbook, msg.Type)
	assert.Equal(t, "0xbtc", msg.MarketID)
	assert.Equal(t, TypeGasPrice, receive(t, btc).Type)

	// eth only sees the unscoped message
	assert.Equal(t, TypeGasPrice, receive(t, eth).Type)
}

func TestHub_SnapshotOnRegister(t *testing.T) {
	hub := runHub(t)
	hub.SetOnRegister(func() []Message {
		return []Message{NewMessage(TypeSnapshot, map[string]string{"gasPrice": "1"})}
	})

	client := NewClient("c1")
	hub.Register(client)

	msg := receive(t, client)
	assert.Equal(t, TypeSnapshot, msg.Type)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := runHub(t)
	client := NewClient("slow")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	for i := 0; i < clientBuffer; i++ {
		require.True(t, client.Send(NewMessage(TypeTrades, i)))
	}
	hub.Broadcast(NewMessage(TypeTrades, "overflow"))

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub(logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := NewClient("c1")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, 0, hub.ClientCount())
	_, ok := <-client.GetSendChan()
	assert.False(t, ok)
}
