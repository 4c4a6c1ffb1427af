package observe

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/go-discord-usrp/internal/config"
)

func freeTCPAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	return addr
}

func TestMeterProviderServesPrometheus(t *testing.T) {
	addr := freeTCPAddr(t)
	cfg := &config.Config{Metrics: config.MetricsConfig{ListenAddr: addr}}
	lc := fxtest.NewLifecycle(t)

	mp, err := NewMeterProvider(MeterProviderParams{
		Cfg:    cfg,
		Logger: zaptest.NewLogger(t),
		LC:     lc,
	})
	require.NoError(t, err)

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	m.ForGuild(discord.GuildID(9)).PacketSent("start", nil)

	lc.RequireStart()
	defer lc.RequireStop()

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "usrp_packets_sent")
	assert.Contains(t, string(body), `guild_id="9"`)
}

func TestMeterProviderWithoutEndpoint(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	mp, err := NewMeterProvider(MeterProviderParams{
		Cfg:    &config.Config{},
		Logger: zaptest.NewLogger(t),
		LC:     lc,
	})
	require.NoError(t, err)
	require.NotNil(t, mp)

	lc.RequireStart().RequireStop()
}

func TestNewResourceNamesService(t *testing.T) {
	res, err := newResource(context.Background())
	require.NoError(t, err)

	name, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, serviceName, name.AsString())
}
