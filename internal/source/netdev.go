package source

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/procfs"
)

const loopback = "lo"

// NetDev measures receive and transmit throughput from /proc/net/dev between
// two consecutive queries. The first query has nothing to compare with and
// reports zero.
type NetDev struct {
	fs    procfs.FS
	iface string
	now   func() time.Time

	sampled bool
	lastAt  time.Time
	lastRx  uint64
	lastTx  uint64
}

// NewNetDev reads counters from the procfs mounted at procPath. An empty iface
// sums every interface except loopback.
func NewNetDev(procPath, iface string) (*NetDev, error) {
	fs, err := procfs.NewFS(procPath)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", procPath, err)
	}
	return &NetDev{fs: fs, iface: iface, now: time.Now}, nil
}

// Query implements Source.
func (n *NetDev) Query(context.Context) (string, error) {
	rx, tx, err := n.counters()
	if err != nil {
		return "", err
	}
	now := n.now()

	var rxRate, txRate uint64
	if n.sampled {
		if secs := now.Sub(n.lastAt).Seconds(); secs > 0 {
			rxRate = rate(n.lastRx, rx, secs)
			txRate = rate(n.lastTx, tx, secs)
		}
	}

	n.sampled = true
	n.lastAt = now
	n.lastRx = rx
	n.lastTx = tx

	return fmt.Sprintf("↓ %s/s ↑ %s/s", humanize.Bytes(rxRate), humanize.Bytes(txRate)), nil
}

func (n *NetDev) counters() (rx, tx uint64, err error) {
	stats, err := n.fs.NetDev()
	if err != nil {
		return 0, 0, fmt.Errorf("read net/dev: %w", err)
	}

	if n.iface != "" {
		line, ok := stats[n.iface]
		if !ok {
			return 0, 0, fmt.Errorf("read net/dev: no interface %q", n.iface)
		}
		return line.RxBytes, line.TxBytes, nil
	}

	for name, line := range stats {
		if name == loopback {
			continue
		}
		rx += line.RxBytes
		tx += line.TxBytes
	}
	return rx, tx, nil
}

// rate is bytes per second; a counter that went backwards (interface reset) reads as zero.
func rate(prev, cur uint64, secs float64) uint64 {
	if cur < prev {
		return 0
	}
	return uint64(float64(cur-prev) / secs)
}
