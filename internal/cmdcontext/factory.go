package cmdcontext

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lydakis/masq/internal/wsclient"
)

// Factory opens a Context on the given UI port.
type Factory interface {
	Make(ctx context.Context, port uint16, streams Streams) (Context, error)
}

// RealFactory connects to a Node or Daemon over websocket.
type RealFactory struct {
	Host            string
	ConnectTimeout  time.Duration
	TransactTimeout time.Duration
	Logger          zerolog.Logger
}

func (f RealFactory) Make(ctx context.Context, port uint16, streams Streams) (Context, error) {
	cfg := wsclient.DefaultConfig()
	if f.Host != "" {
		cfg.Host = f.Host
	}
	if f.ConnectTimeout > 0 {
		cfg.HandshakeTimeout = f.ConnectTimeout
	}
	cfg.Logger = f.Logger

	conn, err := wsclient.Connect(ctx, port, cfg)
	if err != nil {
		return nil, &Error{Message: err.Error(), Err: err}
	}
	return NewReal(conn, streams, f.TransactTimeout, f.Logger), nil
}
