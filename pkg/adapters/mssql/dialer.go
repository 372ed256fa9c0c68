package mssql

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
)

// tcpDialer opens the TCP stream handed to the driver: Nagle disabled so
// small TDS packets leave immediately, keep-alive on, optional timeout.
type tcpDialer struct {
	dialer net.Dialer
	logger zerolog.Logger
}

func newTCPDialer(cfg adapters.Config, logger zerolog.Logger) *tcpDialer {
	return &tcpDialer{
		dialer: net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: cfg.KeepAlive,
		},
		logger: logger,
	}
}

// DialContext implements the driver's Dialer interface.
func (d *tcpDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	start := time.Now()

	conn, err := d.dialer.DialContext(ctx, network, addr)
	if err != nil {
		d.logger.Debug().Err(err).Str("network", network).Str("addr", addr).Msg("dial failed")
		return nil, err
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			conn.Close()
			return nil, err
		}
	}

	d.logger.Debug().
		Str("network", network).
		Str("addr", addr).
		Dur("elapsed", time.Since(start)).
		Msg("dialed")

	return conn, nil
}
