package voice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/go-discord-usrp/internal/config"
	"github.com/Raikerian/go-discord-usrp/internal/identity"
	"github.com/Raikerian/go-discord-usrp/internal/observe"
	"github.com/Raikerian/go-discord-usrp/pkg/audio"
	"github.com/Raikerian/go-discord-usrp/pkg/usrp"
)

const (
	testGuild   = discord.GuildID(500)
	testChannel = discord.ChannelID(600)
)

var errLeft = errors.New("left voice channel")

type fakeConn struct {
	packets chan AudioPacket

	leaveOnce sync.Once
	left      chan struct{}

	mu       sync.Mutex
	written  [][]byte
	writeErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		packets: make(chan AudioPacket, 16),
		left:    make(chan struct{}),
	}
}

func (c *fakeConn) ReadPacket() (AudioPacket, error) {
	select {
	case p := <-c.packets:
		return p, nil
	case <-c.left:
		return AudioPacket{}, errLeft
	}
}

func (c *fakeConn) Write(opus []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.written = append(c.written, append([]byte(nil), opus...))

	return len(opus), nil
}

func (c *fakeConn) Leave(context.Context) error {
	c.leaveOnce.Do(func() { close(c.left) })

	return nil
}

func (c *fakeConn) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.written)
}

func (c *fakeConn) hasLeft() bool {
	select {
	case <-c.left:
		return true
	default:
		return false
	}
}

type fakeJoiner struct {
	mu       sync.Mutex
	conn     *fakeConn
	err      error
	handlers Handlers
}

func (j *fakeJoiner) Join(_ context.Context, _ discord.GuildID, _ discord.ChannelID, h Handlers) (Conn, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return nil, j.err
	}
	j.handlers = h

	return j.conn, nil
}

func (j *fakeJoiner) current() Handlers {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.handlers
}

type fakeResolver struct {
	// gate, when set, holds every lookup until it is closed.
	gate     chan struct{}
	resolved atomic.Int32

	mu        sync.Mutex
	forgotten []discord.UserID
}

func (r *fakeResolver) Resolve(ctx context.Context, _ discord.GuildID, userID discord.UserID) (identity.Profile, error) {
	defer r.resolved.Add(1)
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return identity.Profile{}, ctx.Err()
		}
	}

	return identity.Profile{
		UserID:      userID,
		Username:    "op",
		Nick:        "Op K1ABC",
		DisplayName: "Op",
		Callsign:    "K1ABC",
	}, nil
}

func (r *fakeResolver) Forget(_ discord.GuildID, userID discord.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgotten = append(r.forgotten, userID)
}

func freeUDPAddr(t *testing.T) string {
	t.Helper()
	probe, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	addr := probe.LocalAddr().String()
	require.NoError(t, probe.Close())

	return addr
}

func testConfig(t *testing.T, localRx, remoteTx string) *config.Config {
	t.Helper()
	cfg, err := config.Parse(fmt.Appendf(nil, "usrp:\n  local_rx_addr: %q\n  remote_tx_addr: %q\n", localRx, remoteTx))
	require.NoError(t, err)

	return cfg
}

type harness struct {
	manager  *Manager
	joiner   *fakeJoiner
	conn     *fakeConn
	resolver *fakeResolver
	radio    *net.UDPConn
	rxAddr   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	radio, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = radio.Close() })

	rxAddr := freeUDPAddr(t)
	cfg := testConfig(t, rxAddr, radio.LocalAddr().String())

	metrics, err := observe.NewMetrics(noop.NewMeterProvider())
	require.NoError(t, err)

	h := &harness{
		joiner:   &fakeJoiner{conn: newFakeConn()},
		resolver: &fakeResolver{},
		radio:    radio,
		rxAddr:   rxAddr,
	}
	h.conn = h.joiner.conn
	h.manager = NewManager(cfg, h.joiner, h.resolver, metrics, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = h.manager.Shutdown(context.Background()) })

	return h
}

// readRadio returns the next datagram the bridge sent to the radio network.
func (h *harness) readRadio(t *testing.T) usrp.Packet {
	t.Helper()
	buf := make([]byte, usrp.MaxDatagramSize)
	require.NoError(t, h.radio.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := h.radio.ReadFromUDP(buf)
	require.NoError(t, err)

	return usrp.Decode(buf[:n])
}

func (h *harness) waitForParticipants(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := h.manager.Status(testGuild)

		return err == nil && len(st.Participants) == n
	}, 2*time.Second, 5*time.Millisecond)
}

func toneFrame(t *testing.T, enc *audio.OpusEncoder) []byte {
	t.Helper()
	pcm := make([]int16, audio.DiscordFrameSize*audio.DiscordChannels)
	for i := range audio.DiscordFrameSize {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/audio.DiscordSampleRate))
		pcm[2*i], pcm[2*i+1] = v, v
	}
	packet, err := enc.Encode(pcm)
	require.NoError(t, err)

	return packet
}

func sendRadioAudio(t *testing.T, addr string, frames int) {
	t.Helper()
	raddr, err := net.ResolveUDPAddr("udp", addr)
	require.NoError(t, err)
	conn, err := net.DialUDP("udp", nil, raddr)
	require.NoError(t, err)
	defer conn.Close()

	samples := make([]int16, audio.USRPFrameSize)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*1000*float64(i)/audio.USRPSampleRate))
	}
	for seq := range frames {
		_, err := conn.Write(usrp.AudioPacket{Sequence: uint32(seq), Transmit: true, Samples: samples}.Encode())
		require.NoError(t, err)
	}
}

func TestManagerBridgesBothDirections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.manager.Start(ctx, testGuild, testChannel))

	h.joiner.current().Speaking(100, 42)
	h.waitForParticipants(t, 1)
	require.Eventually(t, func() bool {
		st, err := h.manager.Status(testGuild)

		return err == nil && len(st.Participants) == 1 && st.Participants[0].Callsign == "K1ABC"
	}, 2*time.Second, 5*time.Millisecond)

	st, err := h.manager.Status(testGuild)
	require.NoError(t, err)
	assert.Equal(t, testChannel, st.ChannelID)
	assert.Equal(t, uint32(100), st.Participants[0].SSRC)

	enc, err := audio.NewOpusEncoder(64000)
	require.NoError(t, err)
	for range 3 {
		h.conn.packets <- AudioPacket{SSRC: 100, Opus: toneFrame(t, enc)}
	}

	assert.IsType(t, usrp.StartPacket{}, h.readRadio(t))
	p, ok := h.readRadio(t).(usrp.AudioPacket)
	require.True(t, ok, "audio follows start")
	assert.True(t, p.Transmit)
	assert.Len(t, p.Samples, audio.USRPFrameSize)

	sendRadioAudio(t, h.rxAddr, 3)
	require.Eventually(t, func() bool { return h.conn.writes() >= 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		st, err := h.manager.Status(testGuild)

		return err == nil && st.RadioKeyed
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, h.manager.Stop(ctx, testGuild))
	assert.True(t, h.conn.hasLeft())
	_, err = h.manager.Status(testGuild)
	assert.ErrorIs(t, err, ErrBridgeNotFound)

	// The floor is released either by the hangover or by the shutdown.
	for {
		if _, ok := h.readRadio(t).(usrp.EndPacket); ok {
			break
		}
	}
}

func TestManagerLimits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.manager.Start(ctx, testGuild, testChannel))

	assert.ErrorIs(t, h.manager.Start(ctx, testGuild, testChannel), ErrBridgeExists)
	assert.ErrorIs(t, h.manager.Start(ctx, testGuild+1, testChannel), ErrMaxBridgesReached)
	assert.ErrorIs(t, h.manager.Stop(ctx, testGuild+1), ErrBridgeNotFound)

	_, err := h.manager.Status(testGuild + 1)
	assert.ErrorIs(t, err, ErrBridgeNotFound)
	assert.Len(t, h.manager.Statuses(), 1)

	require.NoError(t, h.manager.Shutdown(ctx))
	assert.Empty(t, h.manager.Statuses())
	assert.True(t, h.conn.hasLeft())
}

func TestManagerJoinFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	boom := errors.New("missing permissions")
	h.joiner.err = boom

	err := h.manager.Start(ctx, testGuild, testChannel)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, h.manager.Statuses())

	// The receive port was released, so a retry can bind it again.
	h.joiner.err = nil
	require.NoError(t, h.manager.Start(ctx, testGuild, testChannel))
}

func TestManagerParticipantLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.manager.Start(ctx, testGuild, testChannel))

	handlers := h.joiner.current()
	handlers.Speaking(100, 42)
	handlers.Speaking(200, 0)
	h.waitForParticipants(t, 1)

	handlers.Speaking(101, 42)
	require.Eventually(t, func() bool {
		st, err := h.manager.Status(testGuild)

		return err == nil && len(st.Participants) == 1 && st.Participants[0].SSRC == 101
	}, 2*time.Second, 5*time.Millisecond)

	handlers.Disconnect(42)
	h.waitForParticipants(t, 0)

	h.resolver.mu.Lock()
	defer h.resolver.mu.Unlock()
	assert.Equal(t, []discord.UserID{42}, h.resolver.forgotten)
}

func TestManagerDisconnectDuringProfileLookup(t *testing.T) {
	h := newHarness(t)
	h.resolver.gate = make(chan struct{})
	require.NoError(t, h.manager.Start(context.Background(), testGuild, testChannel))

	handlers := h.joiner.current()
	handlers.Speaking(100, 42)

	st, err := h.manager.Status(testGuild)
	require.NoError(t, err)
	require.Len(t, st.Participants, 1, "bound before the profile resolves")
	assert.Equal(t, "42", st.Participants[0].DisplayName)
	assert.Empty(t, st.Participants[0].Callsign)

	handlers.Disconnect(42)
	h.waitForParticipants(t, 0)

	close(h.resolver.gate)
	require.Eventually(t, func() bool { return h.resolver.resolved.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Never(t, func() bool {
		st, err := h.manager.Status(testGuild)

		return err != nil || len(st.Participants) != 0
	}, 100*time.Millisecond, 5*time.Millisecond)
}

func TestManagerStopsWhenPlaybackFails(t *testing.T) {
	h := newHarness(t)
	h.conn.writeErr = errors.New("voice connection lost")

	require.NoError(t, h.manager.Start(context.Background(), testGuild, testChannel))
	sendRadioAudio(t, h.rxAddr, 3)

	require.Eventually(t, func() bool {
		_, err := h.manager.Status(testGuild)

		return errors.Is(err, ErrBridgeNotFound)
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, h.conn.hasLeft, time.Second, 5*time.Millisecond)
}
