// SPDX-License-Identifier: MPL-2.0

package webchat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/clawdis/webchat/pkg/types"
)

// Binding is a listening loopback socket and the port it is bound to.
type Binding struct {
	Listener net.Listener
	Port     int
}

// Bind claims a TCP listening socket on 127.0.0.1.
//
// A non-zero preferred port is bound exactly; a zero port lets the OS pick an
// ephemeral one and the real port is reported back. No retries are attempted.
func Bind(ctx context.Context, preferred types.ListenPort) (*Binding, error) {
	if err := preferred.Validate(); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp4", preferred.LoopbackAddress())
	if err != nil {
		// Only two reasons are reported: anything that is not a permission
		// failure, EADDRNOTAVAIL included, counts as the port being unavailable.
		reason := BindPortUnavailable
		if errors.Is(err, os.ErrPermission) {
			reason = BindPermissionDenied
		}
		return nil, &BindError{Port: preferred, Reason: reason, Err: err}
	}

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		_ = ln.Close()
		return nil, &BindError{
			Port:   preferred,
			Reason: BindPortUnavailable,
			Err:    fmt.Errorf("unexpected listener address type %T", ln.Addr()),
		}
	}

	return &Binding{Listener: ln, Port: addr.Port}, nil
}
