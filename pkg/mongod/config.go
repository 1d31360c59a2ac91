package mongod

import (
	"fmt"
	"net"
	"time"

	"github.com/getmockd/embedmongo/pkg/version"
)

// DefaultPort is the port used when neither a port nor random allocation
// is configured.
const DefaultPort = 27017

// DefaultStartTimeout bounds how long Start waits for the server to answer.
const DefaultStartTimeout = 2 * time.Minute

// Config describes the server to launch.
type Config struct {
	Version version.Descriptor

	// BindIP is the address to bind; blank leaves the server default.
	BindIP string

	// Port to listen on. Zero, or RandomPort, allocates a free port.
	Port       int
	RandomPort bool

	// DataDir holds the database files. Blank uses a temporary directory
	// that is removed on stop.
	DataDir string

	AuthEnabled      bool
	Journal          bool
	StorageEngine    string
	UnixSocketPrefix string
	IPv6             bool

	// ExtraArgs are appended verbatim.
	ExtraArgs []string

	// Processors rewrite the generated arguments, in order.
	Processors []ArgsProcessor

	StartTimeout time.Duration
}

// Host is the address clients connect to.
func (c Config) Host() string {
	switch c.BindIP {
	case "", "0.0.0.0", "::":
		if c.IPv6 {
			return "::1"
		}
		return "127.0.0.1"
	}
	return c.BindIP
}

func (c Config) validate() error {
	if c.Version.DownloadPath() == "" {
		return fmt.Errorf("%w: version is blank", ErrConfig)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrConfig, c.Port)
	}
	if c.BindIP != "" && net.ParseIP(c.BindIP) == nil && c.BindIP != "localhost" {
		return fmt.Errorf("%w: bind address %q is not an IP", ErrConfig, c.BindIP)
	}
	return nil
}

// LocalhostIsIPv6 reports whether "localhost" resolves to IPv6 addresses
// only, in which case the server must be started with --ipv6.
func LocalhostIsIPv6() (bool, error) {
	ips, err := net.LookupIP("localhost")
	if err != nil {
		return false, fmt.Errorf("mongod: resolve localhost: %w", err)
	}
	if len(ips) == 0 {
		return false, nil
	}
	for _, ip := range ips {
		if ip.To4() != nil {
			return false, nil
		}
	}
	return true, nil
}
