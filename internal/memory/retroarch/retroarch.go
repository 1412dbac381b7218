// Package retroarch reads emulator memory through RetroArch's UDP network
// command interface.
package retroarch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/smtimer/internal/memory"
)

const (
	// DefaultPort is RetroArch's network command port.
	DefaultPort = 55355
	// FallbackPort is tried when nothing answers on DefaultPort.
	FallbackPort = 55354

	defaultTimeout = 500 * time.Millisecond
	maxDatagram    = 65536
)

var errNoData = errors.New("core returned no data")

// Options configures the client.
type Options struct {
	Host       string
	Port       int
	Timeout    time.Duration
	MaxRetries uint64
	Logger     logrus.FieldLogger
}

// Client is a memory.Source backed by READ_CORE_RAM commands.
type Client struct {
	conn    net.Conn
	addr    string
	timeout time.Duration
	log     logrus.FieldLogger
	buf     []byte
}

// Dial connects to RetroArch, falling back to FallbackPort when the
// configured port does not answer. Connecting is retried with
// exponential backoff.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 5
	}
	ports := []int{opts.Port}
	if opts.Port == DefaultPort {
		ports = append(ports, FallbackPort)
	}

	var client *Client
	attempt := func() error {
		var errs []error
		for _, port := range ports {
			c, err := connect(opts, port)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if _, err := c.readCoreRAM(ctx, 0, 0); err != nil && !errors.Is(err, errNoData) {
				_ = c.Close()
				errs = append(errs, err)
				continue
			}
			client = c
			return nil
		}
		err := errors.Join(errs...)
		opts.Logger.Warnf("retroarch connection failed: %v, retrying...", err)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), opts.MaxRetries), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, fmt.Errorf("failed to connect to retroarch: %w", err)
	}
	opts.Logger.Infof("connected to retroarch at %s", client.addr)
	return client, nil
}

func connect(opts Options, port int) (*Client, error) {
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(port))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &Client{
		conn:    conn,
		addr:    addr,
		timeout: opts.Timeout,
		log:     opts.Logger,
		buf:     make([]byte, maxDatagram),
	}, nil
}

// Addr returns the address the client is connected to.
func (c *Client) Addr() string {
	return c.addr
}

// Close releases the socket.
func (c *Client) Close() error {
	return c.conn.Close()
}

// ReadSnapshot issues one command per range and assembles the results.
func (c *Client) ReadSnapshot(ctx context.Context, ranges []memory.Range) (*memory.Snapshot, error) {
	data := make([][]byte, len(ranges))
	for i, r := range ranges {
		b, err := c.readCoreRAM(ctx, r.Addr, r.Len)
		if err != nil {
			return nil, err
		}
		data[i] = b
	}
	return memory.NewSnapshot(ranges, data)
}

func (c *Client) readCoreRAM(ctx context.Context, addr uint32, size int) ([]byte, error) {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}
	cmd := fmt.Sprintf("READ_CORE_RAM %x %d\n", addr, size)
	if _, err := c.conn.Write([]byte(cmd)); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}
	n, err := c.conn.Read(c.buf)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return parseResponse(string(c.buf[:n]))
}

// parseResponse decodes "READ_CORE_RAM <addr> <hex> <hex> ...".
func parseResponse(msg string) ([]byte, error) {
	fields := strings.Fields(msg)
	if len(fields) < 2 || fields[0] != "READ_CORE_RAM" {
		return nil, fmt.Errorf("unexpected response %q", msg)
	}
	values := fields[2:]
	if len(values) == 1 && values[0] == "-1" {
		return nil, errNoData
	}
	out := make([]byte, len(values))
	for i, field := range values {
		v, err := strconv.ParseUint(field, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("failed to parse byte %q: %w", field, err)
		}
		out[i] = byte(v)
	}
	return out, nil
}
