package mongod

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Pinger confirms a listening server answers commands.
type Pinger func(ctx context.Context, host string, port int) error

// URI returns a direct-connection URI for host:port.
func URI(host string, port int) string {
	return "mongodb://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/?directConnection=true"
}

// DriverPing runs the ping command through the MongoDB driver.
func DriverPing(ctx context.Context, host string, port int) error {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(URI(host, port)).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	return client.Ping(ctx, readpref.Primary())
}

// pingSupported reports whether the bundled driver speaks the wire
// protocol of the server version (3.6 and later).
func pingSupported(cfg Config) bool {
	return cfg.Version.AtLeast(3, 6)
}

// waitReady polls until the server accepts TCP connections and, when ping
// is set, answers a ping. It fails early if the process exits.
func waitReady(ctx context.Context, p Process, ping Pinger) error {
	host, port := p.Endpoint()
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	var last error
	for {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			_ = conn.Close()
			if ping == nil {
				return nil
			}
			pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = ping(pctx, host, port)
			cancel()
			if err == nil {
				return nil
			}
		}
		last = err

		select {
		case <-p.Done():
			return fmt.Errorf("%w before accepting connections on %s: %v", ErrExited, addr, p.Err())
		case <-ctx.Done():
			return fmt.Errorf("server on %s not ready: %w (last error: %v)", addr, ctx.Err(), last)
		case <-tick.C:
		}
	}
}
