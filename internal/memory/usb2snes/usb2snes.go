// Package usb2snes reads console memory through a QUsb2Snes/SNI websocket.
package usb2snes

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/smtimer/internal/memory"
)

const (
	// DefaultAddr is the usual QUsb2Snes listen address.
	DefaultAddr = "127.0.0.1:23074"
	// WRAMBase maps work RAM into the usb2snes address space.
	WRAMBase = 0xF50000

	defaultTimeout = 2 * time.Second
)

// ErrNoDevice is returned when the server reports no attached console.
var ErrNoDevice = errors.New("no devices found via usb2snes")

type request struct {
	Opcode   string   `json:"Opcode"`
	Space    string   `json:"Space"`
	Operands []string `json:"Operands"`
}

type response struct {
	Results []string `json:"Results"`
}

// Options configures the client.
type Options struct {
	Addr       string
	Name       string
	Timeout    time.Duration
	MaxRetries uint64
	Logger     logrus.FieldLogger
}

// Client is a memory.Source over the usb2snes protocol.
type Client struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	opts    Options
	device  string
	log     logrus.FieldLogger
	timeout time.Duration
}

// Dial connects, names the client and attaches to the first device.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Name == "" {
		opts.Name = "smtimer"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 5
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	c := &Client{opts: opts, log: opts.Logger, timeout: opts.Timeout}
	if err := c.connectWithRetry(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectWithRetry(ctx context.Context) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.opts.MaxRetries), ctx)
	err := backoff.Retry(func() error {
		err := c.connect(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNoDevice) {
			return backoff.Permanent(err)
		}
		c.log.Warnf("usb2snes connection failed: %v, retrying...", err)
		return err
	}, policy)
	if err != nil {
		return fmt.Errorf("failed to connect to usb2snes: %w", err)
	}
	c.log.Infof("attached to usb2snes device %s", c.device)
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.opts.Addr}
	dialer := websocket.Dialer{HandshakeTimeout: c.timeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	c.conn = conn
	if err := c.send("Name", c.opts.Name); err != nil {
		return c.abort(err)
	}
	var devices response
	if err := c.request(&devices, "DeviceList"); err != nil {
		return c.abort(err)
	}
	if len(devices.Results) == 0 {
		return c.abort(ErrNoDevice)
	}
	c.device = devices.Results[0]
	if err := c.send("Attach", c.device); err != nil {
		return c.abort(err)
	}
	var info response
	if err := c.request(&info, "Info"); err != nil {
		return c.abort(err)
	}
	c.log.WithField("info", info.Results).Debug("usb2snes device info")
	return nil
}

func (c *Client) abort(err error) error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	return err
}

func (c *Client) send(op string, operands ...string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	if operands == nil {
		operands = []string{}
	}
	return c.conn.WriteJSON(request{Opcode: op, Space: "SNES", Operands: operands})
}

func (c *Client) request(out any, op string, operands ...string) error {
	if err := c.send(op, operands...); err != nil {
		return err
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	if err := c.conn.ReadJSON(out); err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}
	return nil
}

// Close closes the websocket.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// ReadSnapshot requests every range in one GetAddress and splits the
// concatenated binary reply. A failed read drops the connection; the next
// call reconnects.
func (c *Client) ReadSnapshot(ctx context.Context, ranges []memory.Range) (*memory.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to reconnect: %w", err)
		}
	}
	data, err := c.readMulti(ranges)
	if err != nil {
		_ = c.abort(err)
		return nil, err
	}
	return memory.NewSnapshot(ranges, data)
}

func (c *Client) readMulti(ranges []memory.Range) ([][]byte, error) {
	operands := make([]string, 0, 2*len(ranges))
	total := 0
	for _, r := range ranges {
		operands = append(operands,
			strings.ToUpper(strconv.FormatUint(uint64(WRAMBase+r.Addr), 16)),
			strings.ToUpper(strconv.FormatInt(int64(r.Len), 16)))
		total += r.Len
	}
	if err := c.send("GetAddress", operands...); err != nil {
		return nil, fmt.Errorf("failed to send GetAddress: %w", err)
	}
	received := make([]byte, 0, total)
	for len(received) < total {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, err
		}
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read memory: %w", err)
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		received = append(received, msg...)
	}
	return splitRanges(received, ranges), nil
}

func splitRanges(data []byte, ranges []memory.Range) [][]byte {
	out := make([][]byte, len(ranges))
	offset := 0
	for i, r := range ranges {
		end := min(offset+r.Len, len(data))
		out[i] = data[offset:end]
		offset = end
	}
	return out
}
