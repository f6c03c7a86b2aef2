// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"

	"github.com/relabs-tech/gesture_sampler/internal/accel"
)

// Source kinds accepted by SOURCE.
const (
	SourceMPU9250 = "mpu9250"
	SourceSerial  = "serial"
	SourceMock    = "mock"
)

// Config holds all application configuration values.
type Config struct {
	// Acquisition
	Source           string
	TargetHz         float64
	RingCapacity     int
	PrimeThreshold   int
	WindowLength     int // floats per window, 3 per triple
	WindowStride     int // accepted triples between window attempts
	AxisMap          accel.AxisMap
	PollInterval     int // milliseconds
	MaxFetchFailures int // consecutive fetch failures before giving up

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	IMUOutputHz   float64

	// Serial bridge
	SerialPort     string
	SerialBaudRate int
	SerialSampleHz float64

	// Mock
	MockSampleHz float64

	// MQTT
	MQTTBroker          string
	MQTTClientIDSampler string
	MQTTClientIDConsole string
	TopicWindow         string

	// Web Server
	WebServerPort int

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration that runs the mock source with the
// ring sized like the original board firmware.
func Default() *Config {
	return &Config{
		Source:           SourceMock,
		TargetHz:         25,
		RingCapacity:     300,
		PrimeThreshold:   100,
		WindowLength:     384,
		WindowStride:     25,
		AxisMap:          accel.AxisMapIdentity,
		PollInterval:     10,
		MaxFetchFailures: 10,

		IMUSPIDevice:  "/dev/spidev0.0",
		IMUCSPin:      "8",
		IMUAccelRange: 0,
		IMUOutputHz:   100,

		SerialPort:     "/dev/ttyACM0",
		SerialBaudRate: 115200,
		SerialSampleHz: 50,

		MockSampleHz: 50,

		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDSampler: "gesture-sampler",
		MQTTClientIDConsole: "gesture-console",
		TopicWindow:         "gesture/window",

		WebServerPort: 8080,

		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load reads the configuration file on top of Default().
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines. Empty lines and lines starting with # are
// skipped; unknown keys are errors.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Acquisition
	case "SOURCE":
		switch value {
		case SourceMPU9250, SourceSerial, SourceMock:
			c.Source = value
		default:
			return fmt.Errorf("SOURCE must be %s, %s or %s, got %q", SourceMPU9250, SourceSerial, SourceMock, value)
		}
	case "TARGET_HZ":
		c.TargetHz, err = parseHz(key, value)
	case "RING_CAPACITY":
		c.RingCapacity, err = parseInt(key, value, 1, 1<<20)
	case "PRIME_THRESHOLD":
		c.PrimeThreshold, err = parseInt(key, value, 1, 1<<20)
	case "WINDOW_LENGTH":
		c.WindowLength, err = parseInt(key, value, 3, 3<<20)
	case "WINDOW_STRIDE":
		c.WindowStride, err = parseInt(key, value, 1, 1<<20)
	case "AXIS_MAP":
		c.AxisMap, err = accel.ParseAxisMap(value)
	case "POLL_INTERVAL_MS":
		c.PollInterval, err = parseInt(key, value, 1, 60_000)
	case "MAX_FETCH_FAILURES":
		c.MaxFetchFailures, err = parseInt(key, value, 1, 1<<20)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		var rangeVal int
		rangeVal, err = strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_OUTPUT_HZ":
		c.IMUOutputHz, err = parseHz(key, value)

	// Serial bridge
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value, 1, 4_000_000)
	case "SERIAL_SAMPLE_HZ":
		c.SerialSampleHz, err = parseHz(key, value)

	// Mock
	case "MOCK_SAMPLE_HZ":
		c.MockSampleHz, err = parseHz(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_SAMPLER":
		c.MQTTClientIDSampler = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "TOPIC_WINDOW":
		c.TopicWindow = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 0, 65535)

	// Logging
	case "LOG_LEVEL":
		if _, perr := zapcore.ParseLevel(value); perr != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", value, perr)
		}
		c.LogLevel = value
	case "LOG_FORMAT":
		switch value {
		case "console", "json":
			c.LogFormat = value
		default:
			return fmt.Errorf("LOG_FORMAT must be console or json, got %q", value)
		}

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string, min, max int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, min, max, v)
	}
	return v, nil
}

func parseHz(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be > 0 Hz, got %v", key, v)
	}
	return v, nil
}

// Validate checks cross-field constraints and the fields the chosen
// source needs.
func (c *Config) Validate() error {
	if c.WindowLength%3 != 0 {
		return fmt.Errorf("WINDOW_LENGTH must be a multiple of 3, got %d", c.WindowLength)
	}
	if c.WindowLength/3 > c.RingCapacity {
		return fmt.Errorf("WINDOW_LENGTH %d needs %d triples, RING_CAPACITY is %d",
			c.WindowLength, c.WindowLength/3, c.RingCapacity)
	}
	if c.TopicWindow == "" {
		return fmt.Errorf("TOPIC_WINDOW is required")
	}

	switch c.Source {
	case SourceMPU9250:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required")
		}
		if c.IMUCSPin == "" {
			return fmt.Errorf("IMU_CS_PIN is required")
		}
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required")
		}
	}
	return nil
}

// InitGlobal loads the configuration once; later calls are no-ops.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
