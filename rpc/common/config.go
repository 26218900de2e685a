package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Shared transport configuration
// --------------------------------------------------------------------------

// ConnConf holds the settings of the framed connections used by the
// socket based transports (tcp, unix, ws)
type ConnConf struct {
	// MinReadSize is the minimum free space requested before every read (0 = default)
	MinReadSize int
	// MaxPipeBytes caps the bytes buffered between reading and processing (0 = unbounded)
	MaxPipeBytes int
	// MaxFrameSize is the largest accepted frame in bytes (0 = default)
	MaxFrameSize int
}

// SocketConf holds the socket buffer sizes in bytes (0 = os default)
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds tcp specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// LogConfig configures the loggers (see InitLoggers)
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string
	// Format is either console or json
	Format string
	// File is an optional log file. It is rotated once it reaches MaxSizeMB.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerShardType string

const (
	ShardTypeMap  ServerShardType = "map"
	ShardTypeLock ServerShardType = "lock"
)

type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Type is the kind of data structure served by the shard
	Type ServerShardType
}

// ServerTransportConfig holds the transport settings of a member
type ServerTransportConfig struct {
	// Endpoint is the address to listen on (host:port or socket path)
	Endpoint string
	// WorkersPerConn limits the requests processed concurrently per connection
	WorkersPerConn int
	SocketConf
	TCPConf
	Conn ConnConf
}

// ServerConfig holds all configuration parameters of a grid member.
type ServerConfig struct {
	// Shards served by this member
	Shards []ServerShard

	// Timeout for writing responses
	TimeoutSecond int64

	// Transport settings
	Transport ServerTransportConfig

	// MetricsEndpoint is the address of the prometheus endpoint (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	Log LogConfig
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.Transport.WorkersPerConn))
	addField("Metrics Endpoint", orNone(c.MetricsEndpoint))

	// Connection settings
	addSection("Connections")
	addConnFields(addField, c.Transport.Conn)

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.Log.Level)
	addField("Log Format", c.Log.Format)
	addField("Log File", orNone(c.Log.File))

	// Shards
	addSection("Shards")
	for _, shard := range c.Shards {
		addField(strconv.FormatUint(shard.ShardID, 10), string(shard.Type))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the transport settings of a client
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf
	TCPConf
	Conn ConnConf
}

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))

	// Connection settings
	addSection("Connections")
	addConnFields(addField, c.Transport.Conn)

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func addConnFields(addField func(name, value string), c ConnConf) {
	addField("Min Read Size", orDefault(c.MinReadSize, "bytes"))
	addField("Max Pipe Size", orUnbounded(c.MaxPipeBytes))
	addField("Max Frame Size", orDefault(c.MaxFrameSize, "bytes"))
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func orDefault(v int, unit string) string {
	if v <= 0 {
		return "default"
	}
	return fmt.Sprintf("%d %s", v, unit)
}

func orUnbounded(v int) string {
	if v <= 0 {
		return "unbounded"
	}
	return fmt.Sprintf("%d bytes", v)
}
