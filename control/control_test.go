// Author: momentics <momentics@gmail.com>

package control

import (
	"bytes"
	"errors"
	"net"
	"net/http/httptest"
	"testing"

	"github.com/momentics/hioload-xfer/internal/concurrency"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"":         logrus.InfoLevel,
		"DEBUG":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"WARNING":  logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"CRITICAL": logrus.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewLoggerWritesAtLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger("warning", &buf)
	require.NoError(t, err)
	l.Info("hidden")
	l.WithField("path", "/tmp/x").Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "path=/tmp/x")
}

func stubResolver(t *testing.T, name string, ips []net.IP, err error) {
	t.Helper()
	oldLookup, oldHost := lookupIP, hostname
	t.Cleanup(func() { lookupIP, hostname = oldLookup, oldHost })
	hostname = func() (string, error) { return name, nil }
	lookupIP = func(host string) ([]net.IP, error) {
		assert.Equal(t, name, host)
		return ips, err
	}
}

func TestResolveHost(t *testing.T) {
	got, err := ResolveHost("localhost")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", got)

	got, err = ResolveHost("10.1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", got)

	stubResolver(t, "box", []net.IP{net.ParseIP("fe80::1"), net.ParseIP("192.168.1.20")}, nil)
	got, err = ResolveHost("localnet")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", got)
}

func TestResolveHostLocalnetFailures(t *testing.T) {
	stubResolver(t, "box", []net.IP{net.ParseIP("fe80::1")}, nil)
	_, err := ResolveHost("localnet")
	assert.ErrorIs(t, err, ErrNoIPv4)

	lookupErr := errors.New("no dns")
	stubResolver(t, "box", nil, lookupErr)
	_, err = ResolveHost("localnet")
	assert.ErrorIs(t, err, lookupErr)
}

func TestAddress(t *testing.T) {
	addr, err := Address("localhost", 5000)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5000", addr)

	addr, err = Address("::1", 80)
	require.NoError(t, err)
	assert.Equal(t, "[::1]:80", addr)

	_, err = Address("localhost", 70000)
	assert.Error(t, err)
}

func TestMetricsExporter(t *testing.T) {
	reg := prom.NewRegistry()
	m, err := NewMetricsExporter("test", reg)
	require.NoError(t, err)

	m.TaskSpawned("conn")
	m.TaskSpawned("")
	m.TaskRetired("conn", concurrency.OutcomeFaulted)
	m.QueueDepth(2, 5)
	m.PollWakeup(3)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"test_tasks_spawned_total",
		"test_tasks_retired_total",
		"test_scheduler_tasks",
		"test_poll_wakeups_total",
		"test_poll_ready_events",
	} {
		assert.True(t, names[want], want)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `test_tasks_retired_total{outcome="faulted",task="conn"} 1`)
	assert.Contains(t, body, `test_tasks_spawned_total{task="unknown"} 1`)
	assert.Contains(t, body, `test_scheduler_tasks{state="parked"} 5`)

	_, err = NewMetricsExporter("test", reg)
	assert.Error(t, err, "registering the same collectors twice fails")
}
