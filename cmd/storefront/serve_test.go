package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRun_ListenerFailureStillDrains(t *testing.T) {
	log = zaptest.NewLogger(t)

	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	srv := &http.Server{Addr: taken.Addr().String(), Handler: http.NotFoundHandler()}
	drained := false
	err = run(srv, make(chan os.Signal), time.Second, func(ctx context.Context) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		drained = true
	})

	require.Error(t, err)
	assert.True(t, drained)
}

func TestRun_SignalDrainsAndReturnsNil(t *testing.T) {
	log = zaptest.NewLogger(t)

	quit := make(chan os.Signal, 1)
	quit <- syscall.SIGTERM

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	drained := false
	err := run(srv, quit, time.Second, func(context.Context) { drained = true })

	require.NoError(t, err)
	assert.True(t, drained)
}
