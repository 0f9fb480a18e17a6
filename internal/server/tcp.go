package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/kjk/common/log"
)

// maxPortProbes bounds how far Listen walks upward from the requested port.
const maxPortProbes = 100

// Listen opens a TCP listener on host:port. If the port is taken it tries the
// following ports, so the returned listener's address may differ from the
// one requested. Port 0 asks the OS for any free port.
func Listen(host string, port int) (net.Listener, error) {
	for i := 0; i < maxPortProbes; i++ {
		addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		if port == 0 || !errors.Is(err, syscall.EADDRINUSE) {
			return nil, err
		}
		port++
	}
	return nil, fmt.Errorf("no free port found after %d attempts", maxPortProbes)
}

// Serve accepts connections on ln and hands each to h on its own goroutine
// until ctx is cancelled. It closes ln and waits for open connections to be
// closed before returning.
func Serve(ctx context.Context, ln net.Listener, h *Handler) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	conns := make(map[net.Conn]struct{})

	// When ctx is cancelled, close the listener and every open connection
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
		}
		ln.Close()

		mu.Lock()
		for c := range conns {
			c.Close()
		}
		mu.Unlock()
	}()
	defer func() {
		close(stopped)
		wg.Wait()
	}()

	// Accept Loop
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Accept fails once the listener is closed; that is the clean
			// way out of the loop.
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Logf("kvs: error accepting connection: %v\n", err)
			continue
		}

		mu.Lock()
		if ctx.Err() != nil {
			mu.Unlock()
			conn.Close()
			continue
		}
		conns[conn] = struct{}{}
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ServeConn(conn)

			mu.Lock()
			delete(conns, conn)
			mu.Unlock()
		}()
	}
}
