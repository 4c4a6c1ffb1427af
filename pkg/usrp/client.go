package usrp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned by Recv once the client has been closed or the
// receive context is done.
var ErrClosed = errors.New("usrp: client closed")

// NetworkError reports a socket setup failure.
type NetworkError struct {
	Op   string
	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("usrp: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Observer is notified about every datagram the client handles.
type Observer interface {
	PacketSent(kind string, err error)
	PacketReceived(kind string)
}

type nopObserver struct{}

func (nopObserver) PacketSent(string, error) {}
func (nopObserver) PacketReceived(string)    {}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers an observer for sent and received packets.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// Client owns the two UDP sockets of one USRP link: an ephemeral send socket
// connected to the remote gateway and a receive socket bound to a fixed local
// address. All packets sent through a Client share one sequence space.
type Client struct {
	rxAddr *net.UDPAddr
	txAddr *net.UDPAddr

	mu     sync.Mutex
	txConn *net.UDPConn
	rxConn *net.UDPConn
	closed bool

	sequence atomic.Uint32

	logger   *zap.Logger
	observer Observer
}

// NewClient resolves the local receive address and the remote transmit
// address. No sockets are opened until Connect.
func NewClient(localRx, remoteTx string, opts ...Option) (*Client, error) {
	rx, err := net.ResolveUDPAddr("udp", localRx)
	if err != nil {
		return nil, &NetworkError{Op: "resolve", Addr: localRx, Err: err}
	}

	tx, err := net.ResolveUDPAddr("udp", remoteTx)
	if err != nil {
		return nil, &NetworkError{Op: "resolve", Addr: remoteTx, Err: err}
	}

	c := &Client{
		rxAddr:   rx,
		txAddr:   tx,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Connect opens both sockets. A failure on either is returned as a
// *NetworkError and leaves the client without open sockets.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return &NetworkError{Op: "connect", Addr: c.txAddr.String(), Err: ErrClosed}
	}
	if c.txConn != nil {
		return nil
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", c.txAddr.String())
	if err != nil {
		return &NetworkError{Op: "dial", Addr: c.txAddr.String(), Err: err}
	}
	txConn := conn.(*net.UDPConn)

	rxConn, err := net.ListenUDP("udp", c.rxAddr)
	if err != nil {
		_ = txConn.Close()

		return &NetworkError{Op: "listen", Addr: c.rxAddr.String(), Err: err}
	}

	c.txConn = txConn
	c.rxConn = rxConn

	c.logger.Info("USRP client connected",
		zap.Stringer("local_rx", rxConn.LocalAddr()),
		zap.Stringer("local_tx", txConn.LocalAddr()),
		zap.Stringer("remote_tx", c.txAddr))

	return nil
}

// NextSequence returns the next sequence number. Safe for concurrent use.
func (c *Client) NextSequence() uint32 {
	return c.sequence.Add(1) - 1
}

// Send encodes p and writes it as one datagram. Radio voice is loss
// tolerant; callers are expected to drop the packet on error.
func (c *Client) Send(ctx context.Context, p Packet) error {
	c.mu.Lock()
	conn := c.txConn
	c.mu.Unlock()

	if conn == nil {
		err := errors.New("usrp: client not connected")
		c.observer.PacketSent(p.Kind(), err)

		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Time{})
	}

	_, err := conn.Write(p.Encode())
	c.observer.PacketSent(p.Kind(), err)
	if err != nil {
		return fmt.Errorf("usrp: send %s: %w", p.Kind(), err)
	}

	return nil
}

// Recv blocks until one datagram arrives and returns it decoded. It returns
// ErrClosed when the client is closed or ctx is done; any other socket error
// is returned as is. Callers treat every error as the end of the stream.
func (c *Client) Recv(ctx context.Context) (Packet, error) {
	c.mu.Lock()
	conn := c.rxConn
	c.mu.Unlock()

	if conn == nil {
		return nil, ErrClosed
	}

	_ = conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, MaxDatagramSize)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
			return nil, ErrClosed
		}

		return nil, fmt.Errorf("usrp: recv: %w", err)
	}

	p := Decode(buf[:n])
	c.observer.PacketReceived(p.Kind())

	return p, nil
}

// LocalAddr returns the bound receive address, or nil before Connect.
func (c *Client) LocalAddr() *net.UDPAddr {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rxConn == nil {
		return nil
	}

	return c.rxConn.LocalAddr().(*net.UDPAddr)
}

// Close closes both sockets. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.txConn != nil {
		errs = append(errs, c.txConn.Close())
	}
	if c.rxConn != nil {
		errs = append(errs, c.rxConn.Close())
	}

	return errors.Join(errs...)
}
