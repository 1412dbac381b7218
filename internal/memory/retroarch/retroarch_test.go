package retroarch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/verte-zerg/smtimer/internal/memory"
)

func TestParseResponse(t *testing.T) {
	got, err := parseResponse("READ_CORE_RAM 79b 01 ff 0a\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 3 || got[0] != 0x01 || got[1] != 0xff || got[2] != 0x0a {
		t.Fatalf("unexpected bytes: %v", got)
	}
	if _, err := parseResponse("READ_CORE_RAM 79b -1"); !errors.Is(err, errNoData) {
		t.Fatalf("expected errNoData, got %v", err)
	}
	if _, err := parseResponse("GET_STATUS PAUSED"); err == nil {
		t.Fatalf("expected error for foreign response")
	}
}

// fakeCore answers READ_CORE_RAM with bytes equal to the low byte of each address.
func fakeCore(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	go func() {
		buf := make([]byte, 1024)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			fields := strings.Fields(string(buf[:n]))
			addr, _ := strconv.ParseUint(fields[1], 16, 32)
			size, _ := strconv.Atoi(fields[2])
			var b strings.Builder
			fmt.Fprintf(&b, "READ_CORE_RAM %s", fields[1])
			if size == 0 {
				b.WriteString(" -1")
			}
			for i := 0; i < size; i++ {
				fmt.Fprintf(&b, " %02x", byte(addr)+byte(i))
			}
			b.WriteString("\n")
			_, _ = conn.WriteToUDP([]byte(b.String()), from)
		}
	}()
	return conn
}

func TestReadSnapshot(t *testing.T) {
	core := fakeCore(t)
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	ctx := context.Background()
	client, err := Dial(ctx, Options{
		Host:    "127.0.0.1",
		Port:    core.LocalAddr().(*net.UDPAddr).Port,
		Timeout: time.Second,
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	snap, err := client.ReadSnapshot(ctx, []memory.Range{{Addr: 0x79b, Len: 2}, {Addr: 0x998, Len: 1}})
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	v, err := snap.Short(0x79b)
	if err != nil || v != 0x9c9b {
		t.Fatalf("unexpected short 0x%x (%v)", v, err)
	}
	b, err := snap.Byte(0x998)
	if err != nil || b != 0x98 {
		t.Fatalf("unexpected byte 0x%x (%v)", b, err)
	}
}
