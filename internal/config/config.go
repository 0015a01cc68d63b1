package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// Serial endpoints
	GloveSerialPort string
	RobotSerialPort string
	SerialBaudRate  int
	SerialRTSCTS    bool

	// Serial timeouts (milliseconds)
	SerialReadIntervalTimeout      int
	SerialReadTotalTimeout         int
	SerialReadTotalTimeoutPerByte  int
	SerialWriteTotalTimeout        int
	SerialWriteTotalTimeoutPerByte int

	// Bridge loop
	BridgePollInterval    int // milliseconds
	BridgeIdleReportEvery int // empty polls between status lines
	BridgeReadBufferSize  int
	BridgeStopSettle      int // milliseconds

	// Peripheral
	BLELocalName             string
	PeripheralUpdateInterval int // milliseconds, while a central is attached
	PeripheralIdleInterval   int // milliseconds, while advertising

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// MQTT (empty broker disables publishing)
	MQTTBroker             string
	MQTTClientIDBridge     string
	MQTTClientIDPeripheral string
	MQTTClientIDConsole    string
	MQTTClientIDWeb        string
	MQTTClientIDDisplay    string

	// Topics
	TopicPose    string
	TopicCommand string

	// Web Server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds

	LogLevel string
}

// Default returns the configuration used when no file overrides a value.
// The serial values match the glove and robot firmware: 9600 baud, 50 ms
// read interval, 50 ms + 10 ms/byte total timeouts.
func Default() *Config {
	return &Config{
		SerialBaudRate:                 9600,
		SerialReadIntervalTimeout:      50,
		SerialReadTotalTimeout:         50,
		SerialReadTotalTimeoutPerByte:  10,
		SerialWriteTotalTimeout:        50,
		SerialWriteTotalTimeoutPerByte: 10,

		BridgePollInterval:    50,
		BridgeIdleReportEvery: 100,
		BridgeReadBufferSize:  255,
		BridgeStopSettle:      100,

		BLELocalName:             "peripheral_rp2040",
		PeripheralUpdateInterval: 50,
		PeripheralIdleInterval:   10,

		IMUSPIDevice: "/dev/spidev0.0",
		IMUCSPin:     "8",

		MQTTClientIDBridge:     "gesture-arm-bridge",
		MQTTClientIDPeripheral: "gesture-arm-peripheral",
		MQTTClientIDConsole:    "gesture-arm-console",
		MQTTClientIDWeb:        "gesture-arm-web",
		MQTTClientIDDisplay:    "gesture-arm-display",

		TopicPose:    "glove/pose",
		TopicCommand: "glove/command",

		WebServerPort:         8080,
		DisplayUpdateInterval: 200,

		LogLevel: "info",
	}
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal/Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file on top of Default().
// A missing file is not an error: every key has a usable default except the
// serial port names, which commands may also receive as flags.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
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

// positiveInt parses a strictly positive integer for key.
func positiveInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %d", key, v)
	}
	return v, nil
}

// nonNegativeInt parses an integer >= 0 for key.
func nonNegativeInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must be >= 0, got %d", key, v)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Serial
	case "GLOVE_SERIAL_PORT":
		c.GloveSerialPort = value
	case "ROBOT_SERIAL_PORT":
		c.RobotSerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = positiveInt(key, value)
	case "SERIAL_RTSCTS":
		c.SerialRTSCTS, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid SERIAL_RTSCTS %q: %w", value, err)
		}
	case "SERIAL_READ_INTERVAL_TIMEOUT":
		c.SerialReadIntervalTimeout, err = nonNegativeInt(key, value)
	case "SERIAL_READ_TOTAL_TIMEOUT":
		c.SerialReadTotalTimeout, err = nonNegativeInt(key, value)
	case "SERIAL_READ_TOTAL_TIMEOUT_PER_BYTE":
		c.SerialReadTotalTimeoutPerByte, err = nonNegativeInt(key, value)
	case "SERIAL_WRITE_TOTAL_TIMEOUT":
		c.SerialWriteTotalTimeout, err = nonNegativeInt(key, value)
	case "SERIAL_WRITE_TOTAL_TIMEOUT_PER_BYTE":
		c.SerialWriteTotalTimeoutPerByte, err = nonNegativeInt(key, value)

	// Bridge
	case "BRIDGE_POLL_INTERVAL":
		c.BridgePollInterval, err = positiveInt(key, value)
	case "BRIDGE_IDLE_REPORT_EVERY":
		c.BridgeIdleReportEvery, err = positiveInt(key, value)
	case "BRIDGE_READ_BUFFER_SIZE":
		c.BridgeReadBufferSize, err = positiveInt(key, value)
	case "BRIDGE_STOP_SETTLE":
		c.BridgeStopSettle, err = nonNegativeInt(key, value)

	// Peripheral
	case "BLE_LOCAL_NAME":
		c.BLELocalName = value
	case "PERIPHERAL_UPDATE_INTERVAL":
		c.PeripheralUpdateInterval, err = positiveInt(key, value)
	case "PERIPHERAL_IDLE_INTERVAL":
		c.PeripheralIdleInterval, err = positiveInt(key, value)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, perr)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, perr)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_BRIDGE":
		c.MQTTClientIDBridge = value
	case "MQTT_CLIENT_ID_PERIPHERAL":
		c.MQTTClientIDPeripheral = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_COMMAND":
		c.TopicCommand = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = positiveInt(key, value)

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = positiveInt(key, value)

	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// Validate checks cross-field constraints that single keys cannot express.
func (c *Config) Validate() error {
	if c.BLELocalName == "" {
		return fmt.Errorf("BLE_LOCAL_NAME must not be empty")
	}
	if c.TopicPose == "" || c.TopicCommand == "" {
		return fmt.Errorf("TOPIC_POSE and TOPIC_COMMAND must not be empty")
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}

// ValidateBridge checks the values the bridge cannot start without.
func (c *Config) ValidateBridge() error {
	if c.GloveSerialPort == "" {
		return fmt.Errorf("GLOVE_SERIAL_PORT is required")
	}
	if c.RobotSerialPort == "" {
		return fmt.Errorf("ROBOT_SERIAL_PORT is required")
	}
	if c.GloveSerialPort == c.RobotSerialPort {
		return fmt.Errorf("glove and robot must use different serial ports, both are %q", c.GloveSerialPort)
	}
	return nil
}

// Millis converts a millisecond config value to a time.Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
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
