package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statusrelay/internal/config"
	"statusrelay/internal/protocol"
)

const netDevHeader = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
`

func writeNetDev(t *testing.T, procDir, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(procDir, "net"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(procDir, "net", "dev"), []byte(netDevHeader+body), 0644))
}

func TestCommand_Query(t *testing.T) {
	out, err := NewCommand("", "printf '5 Mbps'", 0).Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5 Mbps", out)

	// stdout is returned verbatim, trailing newline included
	out, err = NewCommand("/bin/sh", "echo up", 0).Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "up\n", out)
}

func TestCommand_Env(t *testing.T) {
	cmd := NewCommand("/bin/sh", `printf "$SEGMENT"`, 0)
	cmd.Env = map[string]string{"SEGMENT": "net"}

	out, err := cmd.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "net", out)
}

func TestCommand_Failure(t *testing.T) {
	_, err := NewCommand("/bin/sh", "echo boom >&2; exit 4", 0).Query(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 4")
	assert.Contains(t, err.Error(), "boom")

	_, err = NewCommand("/bin/sh", "  ", 0).Query(context.Background())
	assert.Error(t, err)
}

func TestCommand_Timeout(t *testing.T) {
	start := time.Now()
	_, err := NewCommand("/bin/sh", "sleep 5; echo late", 100*time.Millisecond).Query(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestCommand_TimeoutKillsPipeline(t *testing.T) {
	// cat holds stdout open after sh exits; only a group kill releases it before WaitDelay
	start := time.Now()
	_, err := NewCommand("/bin/sh", "sleep 5 | cat", 100*time.Millisecond).Query(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), config.ProcessKillWaitDelay)
}

func TestCommand_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := NewCommand("/bin/sh", "sleep 5", 0).Query(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMusicCommand(t *testing.T) {
	cmd := MusicCommand("/bin/sh", "mpc", "griffin", time.Second)
	assert.Equal(t, "mpc --host 'griffin'", cmd.Line)
	assert.Equal(t, time.Second, cmd.Timeout)

	assert.Equal(t, "mpc", MusicCommand("", "mpc", "", 0).Line)
	assert.Equal(t, `mpc --host 'it'\''s'`, MusicCommand("", "mpc", "it's", 0).Line)
}

func TestMusicSegment(t *testing.T) {
	const playing = "Daft Punk - Veridis Quo\n" +
		"[playing] #3/10   1:23/5:45 (24%)\n" +
		"volume: 80%   repeat: off   random: off   single: off   consume: off\n"
	const paused = "Daft Punk - Veridis Quo\n" +
		"[paused]  #3/10   1:23/5:45 (24%)\n" +
		"volume: 80%   repeat: off   random: off   single: off   consume: off\n"

	tests := []struct {
		name    string
		out     string
		err     error
		text    string
		color   string
		wantErr bool
	}{
		{"playing", playing, nil, "► Daft Punk - Veridis Quo (1:23/5:45) (v: 80%)", MusicColor, false},
		{"paused", paused, nil, MusicPausedText, MusicColor, false},
		{"stopped", "volume: 80%   repeat: off   random: off   single: off   consume: off\n", nil, MusicStoppedText, MusicStoppedColor, true},
		{"empty", "", nil, MusicStoppedText, MusicStoppedColor, true},
		{"query failed", "", errors.New("exit status 1"), MusicErrorText, MusicErrorColor, true},
		{"no position", "t\n[playing] #1/1\nvolume: 80%\n", nil, MusicErrorText, MusicErrorColor, true},
		{"no volume", "t\n[playing] #1/1   0:01/3:00 (0%)\nvolume: n/a\n", nil, MusicErrorText, MusicErrorColor, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, err := MusicSegment(tt.out, tt.err)
			assert.Equal(t, tt.text, block.FullText)
			assert.Equal(t, tt.color, block.Color)
			assert.Equal(t, MusicSegmentName, block.Name)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestMusicSegment_StoppedSentinel(t *testing.T) {
	_, err := MusicSegment("volume: 80%\n", nil)
	assert.ErrorIs(t, err, ErrPlayerStopped)
}

func TestMusic_Segment(t *testing.T) {
	m := NewMusic(Static{Err: errors.New("connection refused")})
	block, err := m.Segment(context.Background())
	assert.Equal(t, protocol.Block{FullText: MusicErrorText, Name: MusicSegmentName, Color: MusicErrorColor}, block)
	assert.EqualError(t, err, "connection refused")

	m.Source = Static{Text: "a - b\n[paused] #1/2   0:10/3:00 (5%)\nvolume:100%\n"}
	block, err = m.Segment(context.Background())
	assert.Equal(t, MusicPausedText, block.FullText)
	assert.NoError(t, err)
}

func TestFile_Query(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scaling_governor")
	require.NoError(t, os.WriteFile(path, []byte("  powersave \nperformance\n"), 0644))

	text, err := NewFile(path).Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "powersave", text)

	_, err = NewFile(filepath.Join(dir, "missing")).Query(context.Background())
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = NewFile(empty).Query(context.Background())
	assert.Error(t, err)
}

func TestNetDev_Rates(t *testing.T) {
	proc := t.TempDir()
	writeNetDev(t, proc, ""+
		"    lo:    5000      10    0    0    0     0          0         0     5000      10    0    0    0     0       0          0\n"+
		"  eth0:    1000      10    0    0    0     0          0         0     2000      20    0    0    0     0       0          0\n"+
		" wlan0:     500       5    0    0    0     0          0         0      100       1    0    0    0     0       0          0\n")

	meter, err := NewNetDev(proc, "")
	require.NoError(t, err)
	clock := time.Unix(1000, 0)
	meter.now = func() time.Time { return clock }

	text, err := meter.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "↓ 0 B/s ↑ 0 B/s", text)

	writeNetDev(t, proc, ""+
		"    lo:    9000      10    0    0    0     0          0         0     9000      10    0    0    0     0       0          0\n"+
		"  eth0:    5500      10    0    0    0     0          0         0     2000      20    0    0    0     0       0          0\n"+
		" wlan0:     500       5    0    0    0     0          0         0      100       1    0    0    0     0       0          0\n")
	clock = clock.Add(time.Second)

	text, err = meter.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "↓ 4.5 kB/s ↑ 0 B/s", text)
}

func TestNetDev_Interface(t *testing.T) {
	proc := t.TempDir()
	writeNetDev(t, proc,
		"  eth0:    1000      10    0    0    0     0          0         0     2000      20    0    0    0     0       0          0\n")

	meter, err := NewNetDev(proc, "eth0")
	require.NoError(t, err)
	rx, tx, err := meter.counters()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), rx)
	assert.Equal(t, uint64(2000), tx)

	meter, err = NewNetDev(proc, "wlan9")
	require.NoError(t, err)
	_, err = meter.Query(context.Background())
	assert.Error(t, err)
}

func TestRate_CounterReset(t *testing.T) {
	assert.Equal(t, uint64(0), rate(5000, 10, 1))
	assert.Equal(t, uint64(250), rate(0, 500, 2))
}

func TestNewSet(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Music.Enabled = true
	cfg.Music.Host = "griffin"
	cfg.Network.Command = "printf '5 Mbps'"
	cfg.Governor.Enabled = true

	set, err := NewSet(cfg, cfg.Resolve("any"))
	require.NoError(t, err)
	require.NotNil(t, set.Music)
	assert.Equal(t, "mpc --host 'griffin'", set.Music.Source.(*Command).Line)
	assert.IsType(t, &Command{}, set.Network)
	assert.IsType(t, &File{}, set.Governor)

	cfg.Music.OnlyOnHost = "lethe"
	cfg.Governor.Enabled = false
	set, err = NewSet(cfg, cfg.Resolve("other"))
	require.NoError(t, err)
	assert.Nil(t, set.Music)
	assert.Nil(t, set.Governor)
}

func TestNewNetworkSource_BuiltIn(t *testing.T) {
	proc := t.TempDir()
	writeNetDev(t, proc, "")

	cfg := config.DefaultConfig()
	cfg.Network.ProcPath = proc

	src, err := NewNetworkSource(cfg, cfg.Resolve(""))
	require.NoError(t, err)
	assert.IsType(t, &NetDev{}, src)

	cfg.Network.ProcPath = filepath.Join(proc, "missing")
	_, err = NewNetworkSource(cfg, cfg.Resolve(""))
	assert.Error(t, err)
}
