// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitForAddr(t *testing.T, m *manager) net.Addr {
	t.Helper()
	var addr net.Addr
	require.Eventually(t, func() bool {
		addr = m.Addr()
		return addr != nil
	}, 5*time.Second, 10*time.Millisecond)
	return addr
}

func TestManager_ServesUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr, err := NewManager(ServerConfig{ListenAddr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") }))
	require.NoError(t, err)
	m := mgr.(*manager)

	var order []string
	m.RegisterShutdownHook("first", func(context.Context) error { order = append(order, "first"); return nil })
	m.RegisterShutdownHook("second", func(context.Context) error { order = append(order, "second"); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	addr := waitForAddr(t, m)
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr.String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"second", "first"}, order, "hooks run in reverse order")

	require.ErrorIs(t, m.Start(context.Background()), ErrManagerAlreadyStarted)
	require.NoError(t, m.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestManager_ListenError(t *testing.T) {
	mgr, err := NewManager(ServerConfig{ListenAddr: "256.0.0.1:bad"}, http.NotFoundHandler())
	require.NoError(t, err)
	require.Error(t, mgr.Start(context.Background()))
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	mgr, err := NewManager(ServerConfig{}, http.NotFoundHandler())
	require.NoError(t, err)
	require.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)

	_, err = NewManager(ServerConfig{}, nil)
	require.Error(t, err)
}

func TestManager_HookErrorsAreJoined(t *testing.T) {
	mgr, err := NewManager(ServerConfig{ListenAddr: "127.0.0.1:0"}, http.NotFoundHandler())
	require.NoError(t, err)
	m := mgr.(*manager)
	boom := errors.New("flush failed")
	m.RegisterShutdownHook("store", func(context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()
	waitForAddr(t, m)
	cancel()

	err = <-done
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "hook store")
}
