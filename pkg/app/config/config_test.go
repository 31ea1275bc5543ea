package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sunxicir/pkg/cir"
	"sunxicir/pkg/rawir"

	qt "github.com/frankban/quicktest"
	"github.com/womat/debug"
)

func writeConfig(c *qt.C, content string) *Config {
	name := filepath.Join(c.TempDir(), "sunxicir.yaml")
	c.Assert(os.WriteFile(name, []byte(content), 0o600), qt.IsNil)

	cfg := NewConfig()
	cfg.Flag.ConfigFile = name
	return cfg
}

func TestLoadConfig(t *testing.T) {
	c := qt.New(t)
	cfg := writeConfig(c, `
backend: gpio
receiver:
  clockrate: 8000000
  divider: 1
  filter: 2
  idle: 40
  invert: false
  watermark: 4
  timeout: 50
gpio:
  chip: gpiochip1
  line: 23
  bias: pulldown
protocols: [nec, rc5]
debug:
  file: stdout
  flag: debug
mqtt:
  connection: tcp://127.0.0.1:1883
  topic: ir/livingroom
`)
	cfg.Flag.LogLevel = "trace"

	c.Assert(cfg.LoadConfig(), qt.IsNil)
	c.Assert(cfg.Backend, qt.Equals, BackendGPIO)
	c.Assert(cfg.GPIO, qt.DeepEquals, GPIOConfig{Chip: "gpiochip1", Line: 23, Bias: "pulldown"})
	c.Assert(cfg.Receiver.Timeout, qt.Equals, 50*time.Millisecond)
	c.Assert(cfg.Log.File, qt.Equals, os.Stdout)
	c.Assert(cfg.Log.Flag, qt.Equals, debug.Full)
	c.Assert(cfg.MQTT.Topic, qt.Equals, "ir/livingroom")
	// sections not in the file keep their defaults
	c.Assert(cfg.Webserver.URL, qt.Equals, "http://0.0.0.0:4000")

	rc := cfg.CIR()
	c.Assert(rc.Divider, qt.Equals, uint32(1))
	c.Assert(rc.Filter, qt.Equals, uint32(2))
	c.Assert(rc.Idle, qt.Equals, uint32(40))
	c.Assert(rc.Invert, qt.IsFalse)
	c.Assert(rc.Watermark, qt.Equals, uint32(4))
	c.Assert(rc.PinGroup, qt.Equals, "ir0_rx")

	m, err := rawir.ParseProtocols(cfg.Protocols)
	c.Assert(err, qt.IsNil)
	c.Assert(m, qt.Equals, rawir.ProtoNEC|rawir.ProtoRC5)
}

func TestDefaults(t *testing.T) {
	c := qt.New(t)
	cfg := writeConfig(c, "debug:\n  file: stderr\n")

	c.Assert(cfg.LoadConfig(), qt.IsNil)
	c.Assert(cfg.Log.Flag, qt.Equals, debug.Standard)
	c.Assert(cfg.CIR(), qt.DeepEquals, cir.DefaultConfig())
}

func TestSecondReceiver(t *testing.T) {
	c := qt.New(t)
	cfg := writeConfig(c, "sunxi:\n  receiver: 1\n  uio: /dev/uio1\n")

	c.Assert(cfg.LoadConfig(), qt.IsNil)
	rc := cfg.CIR()
	c.Assert(rc.PinGroup, qt.Equals, "ir1_rx")
	c.Assert(rc.BusClock, qt.Equals, "apb_ir1")
	c.Assert(rc.ModuleClock, qt.Equals, "ir1")
}

func TestInvalidConfig(t *testing.T) {
	c := qt.New(t)

	cfg := writeConfig(c, "backend: lirc\n")
	c.Assert(cfg.LoadConfig(), qt.ErrorIs, ErrInvalidBackend)

	cfg = writeConfig(c, "protocols: [nec, foo]\n")
	c.Assert(cfg.LoadConfig(), qt.ErrorIs, rawir.ErrUnknownProtocol)

	cfg = writeConfig(c, "receiver:\n  watermark: 17\n")
	c.Assert(cfg.LoadConfig(), qt.ErrorIs, cir.ErrInvalidConfig)

	cfg = NewConfig()
	cfg.Flag.ConfigFile = filepath.Join(c.TempDir(), "missing.yaml")
	c.Assert(cfg.LoadConfig(), qt.ErrorIs, os.ErrNotExist)
}
