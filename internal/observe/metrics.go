// Package observe records bridge metrics through the OpenTelemetry metrics
// API and exposes them on a Prometheus scrape endpoint.
package observe

import (
	"context"

	"github.com/diamondburned/arikawa/v3/discord"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Raikerian/go-discord-usrp/internal/bridge"
	"github.com/Raikerian/go-discord-usrp/pkg/usrp"
)

const meterName = "github.com/Raikerian/go-discord-usrp"

// Metrics holds the instruments shared by every bridge. All fields are safe
// for concurrent use.
type Metrics struct {
	// PacketsSent counts USRP datagrams by kind and status.
	PacketsSent metric.Int64Counter
	// PacketsReceived counts USRP datagrams by kind.
	PacketsReceived metric.Int64Counter
	// FramesSkipped counts audio frames a resampler could not complete, by
	// direction ("tx" or "rx").
	FramesSkipped metric.Int64Counter
	// FloorChanges counts the radio floor being taken and released.
	FloorChanges metric.Int64Counter
	// RadioKeys counts the radio side keying up and down.
	RadioKeys metric.Int64Counter
	// Participants is the size of each bridge's SSRC directory.
	Participants metric.Int64Gauge
	// ActiveBridges tracks the number of running bridges.
	ActiveBridges metric.Int64UpDownCounter
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.PacketsSent, err = m.Int64Counter("usrp.packets.sent",
		metric.WithDescription("USRP datagrams sent, by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.PacketsReceived, err = m.Int64Counter("usrp.packets.received",
		metric.WithDescription("USRP datagrams received, by kind."),
	); err != nil {
		return nil, err
	}
	if met.FramesSkipped, err = m.Int64Counter("bridge.frames.skipped",
		metric.WithDescription("Audio frames dropped by the resampling pipeline, by direction."),
	); err != nil {
		return nil, err
	}
	if met.FloorChanges, err = m.Int64Counter("bridge.floor.changes",
		metric.WithDescription("Radio floor transitions, by state."),
	); err != nil {
		return nil, err
	}
	if met.RadioKeys, err = m.Int64Counter("bridge.radio.keys",
		metric.WithDescription("Radio side key transitions, by state."),
	); err != nil {
		return nil, err
	}
	if met.Participants, err = m.Int64Gauge("bridge.participants",
		metric.WithDescription("Participants bound to an SSRC in the bridged channel."),
	); err != nil {
		return nil, err
	}
	if met.ActiveBridges, err = m.Int64UpDownCounter("bridge.active",
		metric.WithDescription("Running bridges."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// ForGuild returns a recorder that tags every measurement with guildID.
func (m *Metrics) ForGuild(guildID discord.GuildID) *GuildRecorder {
	return &GuildRecorder{
		metrics: m,
		guild:   attribute.String("guild_id", guildID.String()),
	}
}

// GuildRecorder reports the events of one bridge. It implements
// usrp.Observer and bridge.Recorder.
type GuildRecorder struct {
	metrics *Metrics
	guild   attribute.KeyValue
}

var (
	_ usrp.Observer   = (*GuildRecorder)(nil)
	_ bridge.Recorder = (*GuildRecorder)(nil)
)

// PacketSent implements usrp.Observer.
func (r *GuildRecorder) PacketSent(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.PacketsSent.Add(context.Background(), 1, metric.WithAttributes(
		r.guild,
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

// PacketReceived implements usrp.Observer.
func (r *GuildRecorder) PacketReceived(kind string) {
	r.metrics.PacketsReceived.Add(context.Background(), 1, metric.WithAttributes(
		r.guild,
		attribute.String("kind", kind),
	))
}

// FloorChanged implements bridge.Recorder.
func (r *GuildRecorder) FloorChanged(ctx context.Context, transmitting bool) {
	r.metrics.FloorChanges.Add(ctx, 1, metric.WithAttributes(r.guild, state(transmitting)))
}

// FrameSkipped implements bridge.Recorder.
func (r *GuildRecorder) FrameSkipped(ctx context.Context, direction string) {
	r.metrics.FramesSkipped.Add(ctx, 1, metric.WithAttributes(
		r.guild,
		attribute.String("direction", direction),
	))
}

// ParticipantsChanged implements bridge.Recorder.
func (r *GuildRecorder) ParticipantsChanged(ctx context.Context, n int) {
	r.metrics.Participants.Record(ctx, int64(n), metric.WithAttributes(r.guild))
}

// RadioKeyed implements bridge.Recorder.
func (r *GuildRecorder) RadioKeyed(ctx context.Context, keyed bool) {
	r.metrics.RadioKeys.Add(ctx, 1, metric.WithAttributes(r.guild, state(keyed)))
}

// BridgeStarted counts a bridge coming up.
func (r *GuildRecorder) BridgeStarted(ctx context.Context) {
	r.metrics.ActiveBridges.Add(ctx, 1)
}

// BridgeStopped counts a bridge going down.
func (r *GuildRecorder) BridgeStopped(ctx context.Context) {
	r.metrics.ActiveBridges.Add(ctx, -1)
}

func state(on bool) attribute.KeyValue {
	if on {
		return attribute.String("state", "on")
	}

	return attribute.String("state", "off")
}
