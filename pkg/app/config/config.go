package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"sunxicir/pkg/cir"
	"sunxicir/pkg/rawir"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Receiver backends.
const (
	BackendSunxi = "sunxi"
	BackendGPIO  = "gpio"
)

var ErrInvalidBackend = errors.New("invalid backend")

// Config holds the application configuration. Attention!
// To make it possible to overwrite fields with the -overwrite command
// line option each of the struct fields must be in the format
// first letter uppercase -> followed by CamelCase as in the config file.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Backend   string          `yaml:"backend"`
	Receiver  ReceiverConfig  `yaml:"receiver"`
	Sunxi     SunxiConfig     `yaml:"sunxi"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Protocols []string        `yaml:"protocols"`
	Flag      FlagConfig      `yaml:"-"`
	Log       LogConfig       `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	LogLevel   string
	ConfigFile string
}

// ReceiverConfig defines the sampling parameters of the receiver.
type ReceiverConfig struct {
	ClockRate  uint32        `yaml:"clockrate"`
	Divider    uint32        `yaml:"divider"`
	Filter     uint32        `yaml:"filter"`
	Idle       uint32        `yaml:"idle"`
	Invert     bool          `yaml:"invert"`
	Watermark  uint32        `yaml:"watermark"`
	TimeoutInt int           `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

// SunxiConfig selects the CIR receiver of an Allwinner A10/A20 board.
type SunxiConfig struct {
	Receiver int    `yaml:"receiver"`
	UIO      string `yaml:"uio"`
}

// GPIOConfig defines the input line of the software receiver.
type GPIOConfig struct {
	Chip    string `yaml:"chip"`
	Line    int    `yaml:"line"`
	Bias    string `yaml:"bias"`
	GPIOMem bool   `yaml:"gpiomem"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	Topic      string `yaml:"topic"`
	Retained   bool   `yaml:"retained"`
}

// LogConfig defines the struct of the debug configuration and configuration file
type LogConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Backend: BackendSunxi,
		Receiver: ReceiverConfig{
			ClockRate:  cir.DefaultClockRate,
			Divider:    cir.DefaultDivider,
			Filter:     cir.DefaultFilter,
			Idle:       cir.DefaultIdle,
			Invert:     true,
			Watermark:  cir.DefaultWatermark,
			TimeoutInt: int(cir.DefaultTimeout / time.Millisecond),
		},
		Sunxi: SunxiConfig{
			Receiver: 0,
			UIO:      "/dev/uio0",
		},
		GPIO: GPIOConfig{
			Chip: "gpiochip0",
			Line: 18,
			Bias: "pullup",
		},
		Protocols: []string{"all"},
		Flag:      FlagConfig{},
		Log: LogConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version":   true,
				"health":    true,
				"data":      true,
				"protocols": true,
			},
		},
		MQTT: MQTTConfig{
			Connection: "",
			Topic:      "sunxicir/packet",
		},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.LogLevel != "" {
		c.Log.FlagString = c.Flag.LogLevel
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Log.FileString, err)
	}

	c.Receiver.Timeout = time.Duration(c.Receiver.TimeoutInt) * time.Millisecond

	return c.validate()
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendSunxi, BackendGPIO:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend)
	}

	if _, err := rawir.ParseProtocols(c.Protocols); err != nil {
		return err
	}

	return c.CIR().Validate()
}

// CIR returns the receiver configuration of the selected backend.
func (c *Config) CIR() cir.Config {
	cfg := cir.DefaultConfig()
	cfg.ClockRate = c.Receiver.ClockRate
	cfg.Divider = c.Receiver.Divider
	cfg.Filter = c.Receiver.Filter
	cfg.Idle = c.Receiver.Idle
	cfg.Invert = c.Receiver.Invert
	cfg.Watermark = c.Receiver.Watermark
	cfg.Timeout = c.Receiver.Timeout

	if c.Backend == BackendSunxi && c.Sunxi.Receiver == 1 {
		cfg.PinGroup = "ir1_rx"
		cfg.BusClock = "apb_ir1"
		cfg.ModuleClock = "ir1"
	}
	return cfg
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Log.FlagString {
	case "trace", "full":
		c.Log.Flag = debug.Full
	case "debug":
		c.Log.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Log.Flag = debug.Standard
	}

	switch c.Log.FileString {
	case "stderr":
		c.Log.File = os.Stderr
	case "stdout":
		c.Log.File = os.Stdout
	default:
		if c.Log.File, err = os.OpenFile(c.Log.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
