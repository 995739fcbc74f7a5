package util

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/rpc/common"
	"github.com/ValentinKolb/eeKV/rpc/serializer"
	"github.com/ValentinKolb/eeKV/rpc/transport"
	"github.com/ValentinKolb/eeKV/rpc/transport/http"
	"github.com/ValentinKolb/eeKV/rpc/transport/tcp"
	"github.com/ValentinKolb/eeKV/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables read by the cli
	EnvPrefix = "eekv"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig loads .env files and makes viper read EEKV_ environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(flags *pflag.FlagSet) {
	key := "timeout"
	flags.Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "transport-endpoints"
	flags.String(key, "http://localhost:8080", WrapString("The address of the eeKV server. For transports that support load balancing, multiple endpoints can be specified as a comma-separated list"))

	key = "transport-conn-per-endpoint"
	flags.Int(key, 1, WrapString("Simultaneous connections per endpoint - for transports that support this feature"))

	key = "transport-retries"
	flags.Int(key, 3, WrapString("How many times to retry the request"))

	key = "transport-write-buffer"
	flags.Int(key, 64, WrapString("The size of the write buffer for the transport (in KB, ignored for http)"))

	key = "transport-read-buffer"
	flags.Int(key, 64, WrapString("The size of the read buffer for the transport (in KB, ignored for http)"))

	key = "transport-tcp-nodelay"
	flags.Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	flags.Int(key, 0, WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))

	key = "output"
	flags.VarP(newOutputFormat(), key, "o", WrapString("Output format (text, json, yaml)"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Transport: common.ClientTransportConfig{
			RetryCount:             viper.GetInt("transport-retries"),
			Endpoints:              strings.Split(viper.GetString("transport-endpoints"), ","),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			WriteBufferSize:        viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:         viper.GetInt("transport-read-buffer") * 1024,
			TCPKeepAliveSec:        viper.GetInt("transport-tcp-keepalive"),
			TCPNoDelay:             viper.GetBool("transport-tcp-nodelay"),
		},
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetClientTransport creates the client transport based on configuration
func GetClientTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates the server transport based on configuration
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetShardID retrieves the configured shard ID
func GetShardID() uint64 {
	return viper.GetUint64("shard")
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Arguments
// --------------------------------------------------------------------------

// ParseKey parses an object key. Decimal (16) and hex (0x10) notation are accepted.
func ParseKey(s string) (db.Key, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: %w", s, err)
	}
	key := db.Key(v)
	if !key.Valid() {
		return 0, fmt.Errorf("invalid key %q: 0x%02x is reserved", s, uint8(db.SentinelKey))
	}
	return key, nil
}

// ParseUint32 parses an address or length. Decimal and hex notation are accepted.
func ParseUint32(name, s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", name, err)
	}
	return uint32(v), nil
}

// ParseValue returns the bytes of a value argument. With hexInput the argument is
// decoded as hex string, otherwise it is used verbatim.
func ParseValue(s string, hexInput bool) ([]byte, error) {
	if !hexInput {
		return []byte(s), nil
	}
	data, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex value: %w", err)
	}
	return data, nil
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// OutputFormat selects how command results are printed. It implements pflag.Value.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

var _ pflag.Value = (*OutputFormat)(nil)

func newOutputFormat() *OutputFormat {
	f := OutputText
	return &f
}

func (f *OutputFormat) String() string {
	return string(*f)
}

func (f *OutputFormat) Set(s string) error {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, OutputJSON, OutputYAML:
		*f = OutputFormat(strings.ToLower(s))
		return nil
	default:
		return fmt.Errorf("invalid output format %q (expected text, json or yaml)", s)
	}
}

func (f *OutputFormat) Type() string {
	return "format"
}

// GetOutputFormat returns the format selected with --output
func GetOutputFormat() OutputFormat {
	f := OutputFormat(strings.ToLower(viper.GetString("output")))
	if f == "" {
		return OutputText
	}
	return f
}

// Print writes v to w in the selected format. For the text format text is called, a nil
// text prints v with its default formatting.
func Print(w io.Writer, v interface{}, text func(io.Writer)) error {
	switch GetOutputFormat() {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		if text != nil {
			text(w)
			return nil
		}
		_, err := fmt.Fprintf(w, "%+v\n", v)
		return err
	}
}
