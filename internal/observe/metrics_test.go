package observe

import (
	"context"
	"errors"
	"testing"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)

	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}

	return nil
}

// sumFor adds the data points of a counter whose attributes include every
// given pair.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	met := findMetric(rm, name)
	require.NotNil(t, met, "metric %q not found", name)
	sum, ok := met.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %q is not an int64 sum", name)

	var total int64
	for _, dp := range sum.DataPoints {
		match := true
		for _, kv := range attrs {
			v, ok := dp.Attributes.Value(kv.Key)
			if !ok || v != kv.Value {
				match = false

				break
			}
		}
		if match {
			total += dp.Value
		}
	}

	return total
}

func TestGuildRecorderPackets(t *testing.T) {
	m, reader := newTestMetrics(t)
	rec := m.ForGuild(discord.GuildID(7))

	rec.PacketSent("start", nil)
	rec.PacketSent("audio", nil)
	rec.PacketSent("audio", nil)
	rec.PacketSent("audio", errors.New("boom"))
	rec.PacketReceived("audio")
	rec.PacketReceived("unknown")

	rm := collect(t, reader)
	guild := attribute.String("guild_id", "7")

	assert.EqualValues(t, 2, sumFor(t, rm, "usrp.packets.sent", guild,
		attribute.String("kind", "audio"), attribute.String("status", "ok")))
	assert.EqualValues(t, 1, sumFor(t, rm, "usrp.packets.sent",
		attribute.String("status", "error")))
	assert.EqualValues(t, 4, sumFor(t, rm, "usrp.packets.sent", guild))
	assert.EqualValues(t, 1, sumFor(t, rm, "usrp.packets.received",
		attribute.String("kind", "unknown")))
}

func TestGuildRecorderBridgeEvents(t *testing.T) {
	m, reader := newTestMetrics(t)
	rec := m.ForGuild(discord.GuildID(7))
	ctx := context.Background()

	rec.FloorChanged(ctx, true)
	rec.FloorChanged(ctx, false)
	rec.FloorChanged(ctx, true)
	rec.FrameSkipped(ctx, "rx")
	rec.RadioKeyed(ctx, true)
	rec.ParticipantsChanged(ctx, 3)
	rec.ParticipantsChanged(ctx, 2)
	rec.BridgeStarted(ctx)

	rm := collect(t, reader)

	assert.EqualValues(t, 2, sumFor(t, rm, "bridge.floor.changes", attribute.String("state", "on")))
	assert.EqualValues(t, 1, sumFor(t, rm, "bridge.floor.changes", attribute.String("state", "off")))
	assert.EqualValues(t, 1, sumFor(t, rm, "bridge.frames.skipped", attribute.String("direction", "rx")))
	assert.EqualValues(t, 1, sumFor(t, rm, "bridge.radio.keys", attribute.String("state", "on")))
	assert.EqualValues(t, 1, sumFor(t, rm, "bridge.active"))

	met := findMetric(rm, "bridge.participants")
	require.NotNil(t, met)
	gauge, ok := met.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.EqualValues(t, 2, gauge.DataPoints[0].Value)
}
