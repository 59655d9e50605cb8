package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bft-labs/greenfinch/pkg/greenfinch"
	"github.com/bft-labs/greenfinch/pkg/log"
)

type fakeController struct {
	mu         sync.Mutex
	interval   time.Duration
	autoEvents greenfinch.AutoEvents
	useIP      *bool
	sets       int
}

func (c *fakeController) SetFlushInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = d
	c.sets++
}

func (c *fakeController) FlushInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

func (c *fakeController) SetAutomaticEvents(v greenfinch.AutoEvents) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoEvents = v
}

func (c *fakeController) SetUseIPForGeolocation(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.useIP = &v
}

func (c *fakeController) snapshot() (time.Duration, greenfinch.AutoEvents, *bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval, c.autoEvents, c.useIP, c.sets
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func startPlugin(t *testing.T, cfg Config, path string, ctrl greenfinch.Controller) *Plugin {
	t.Helper()
	p := New(cfg)
	err := p.Initialize(context.Background(), greenfinch.PluginConfig{
		ConfigPath: path,
		Logger:     log.NewNoopLogger(),
		Controller: ctrl,
	})
	require.NoError(t, err)
	return p
}

func TestPlugin_AppliesRuntimeSettings(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "token = \"abc\"\nflush_interval = \"60s\"\n")

	ctrl := &fakeController{interval: time.Minute}
	p := startPlugin(t, Config{DebounceDelay: 10 * time.Millisecond}, path, ctrl)
	defer func() { require.NoError(t, p.Shutdown(context.Background())) }()

	writeConfig(t, path, `token = "abc"
flush_interval = "5s"
automatic_events = "false"
use_ip_for_geolocation = false
`)

	assert.Eventually(t, func() bool {
		d, ae, useIP, _ := ctrl.snapshot()
		return d == 5*time.Second && ae == greenfinch.AutoEventsDisabled && useIP != nil && !*useIP
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPlugin_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "flush_interval: 60s\n")

	ctrl := &fakeController{interval: time.Minute}
	p := startPlugin(t, Config{DebounceDelay: 10 * time.Millisecond}, path, ctrl)
	defer func() { require.NoError(t, p.Shutdown(context.Background())) }()

	writeConfig(t, path, "flush_interval: 0s\nautomatic_events: \"true\"\n")

	assert.Eventually(t, func() bool {
		d, ae, _, sets := ctrl.snapshot()
		return d == 0 && sets == 1 && ae == greenfinch.AutoEventsEnabled
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPlugin_PinnedSettingsAreKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "")

	ctrl := &fakeController{interval: time.Minute}
	p := startPlugin(t, Config{
		DebounceDelay: 10 * time.Millisecond,
		Pinned:        map[string]bool{SettingFlushInterval: true},
	}, path, ctrl)
	defer func() { require.NoError(t, p.Shutdown(context.Background())) }()

	writeConfig(t, path, "flush_interval = \"1s\"\nuse_ip_for_geolocation = true\n")

	assert.Eventually(t, func() bool {
		_, _, useIP, _ := ctrl.snapshot()
		return useIP != nil && *useIP
	}, 2*time.Second, 10*time.Millisecond)

	d, _, _, sets := ctrl.snapshot()
	assert.Equal(t, time.Minute, d)
	assert.Zero(t, sets)
}

func TestPlugin_UnchangedIntervalIsNotReapplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "")

	ctrl := &fakeController{interval: time.Minute}
	p := startPlugin(t, Config{DebounceDelay: 10 * time.Millisecond}, path, ctrl)
	defer func() { require.NoError(t, p.Shutdown(context.Background())) }()

	writeConfig(t, path, "flush_interval = \"1m\"\nuse_ip_for_geolocation = false\n")

	assert.Eventually(t, func() bool {
		_, _, useIP, _ := ctrl.snapshot()
		return useIP != nil
	}, 2*time.Second, 10*time.Millisecond)
	_, _, _, sets := ctrl.snapshot()
	assert.Zero(t, sets, "setting the same interval restarts the timer and flushes")
}

func TestPlugin_InvalidFileKeepsSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "")

	ctrl := &fakeController{interval: time.Minute}
	p := startPlugin(t, Config{DebounceDelay: 10 * time.Millisecond}, path, ctrl)
	defer func() { require.NoError(t, p.Shutdown(context.Background())) }()

	writeConfig(t, path, "flush_interval = [not toml")
	time.Sleep(100 * time.Millisecond)

	d, ae, useIP, sets := ctrl.snapshot()
	assert.Equal(t, time.Minute, d)
	assert.Equal(t, greenfinch.AutoEventsUnknown, ae)
	assert.Nil(t, useIP)
	assert.Zero(t, sets)
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "")

	ctrl := &fakeController{interval: time.Minute}
	p := startPlugin(t, Config{DebounceDelay: 10 * time.Millisecond}, path, ctrl)
	defer func() { require.NoError(t, p.Shutdown(context.Background())) }()

	writeConfig(t, filepath.Join(dir, "other.toml"), "flush_interval = \"1s\"\n")
	time.Sleep(100 * time.Millisecond)

	_, _, _, sets := ctrl.snapshot()
	assert.Zero(t, sets)
}

func TestPlugin_DisabledWithoutPath(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := startPlugin(t, DefaultConfig(), "", &fakeController{})
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestPlugin_ShutdownIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "")

	p := startPlugin(t, DefaultConfig(), path, &fakeController{})
	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{})
	assert.Equal(t, 100*time.Millisecond, p.debounceDelay)
	assert.Equal(t, "configwatcher", p.Name())
}
