package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/kjk/common/log"

	"github.com/0xRadioAc7iv/go-kvlog/core"
	"github.com/0xRadioAc7iv/go-kvlog/internal/protocol"
)

// Handler executes protocol commands against one Store.
//
// Store does no locking of its own, so every command runs under mu; the
// append-then-index order of a mutation is never interleaved with another
// connection's call.
type Handler struct {
	mu    sync.Mutex
	store *core.Store
}

func NewHandler(store *core.Store) *Handler {
	return &Handler{store: store}
}

// ServeConn reads commands from conn until the client disconnects.
func (h *Handler) ServeConn(conn net.Conn) {
	defer conn.Close()

	log.Verbosef("kvs: client connected from %s\n", conn.RemoteAddr())

	for {
		cmd, err := protocol.DecodeCommand(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Logf("kvs: dropping client %s: %v\n", conn.RemoteAddr(), err)
			} else {
				log.Verbosef("kvs: client %s disconnected\n", conn.RemoteAddr())
			}
			return
		}

		status, body := h.Handle(cmd)
		if err := reply(conn, status, body); err != nil {
			log.Verbosef("kvs: client %s disconnected: %v\n", conn.RemoteAddr(), err)
			return
		}
	}
}

// Handle runs a single command and returns the response to send back.
func (h *Handler) Handle(cmd *protocol.Command) (protocol.Status, string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch strings.ToLower(cmd.Name) {
	case "ping":
		return protocol.StatusOK, "PONG!"
	case "set":
		return h.handleSet(cmd.Key, cmd.Value)
	case "get":
		return h.handleGet(cmd.Key)
	case "rm", "delete":
		return h.handleRemove(cmd.Key)
	case "exists":
		return h.handleExists(cmd.Key)
	case "count":
		return protocol.StatusOK, strconv.Itoa(h.store.Len())
	case "list":
		return protocol.StatusOK, strings.Join(h.store.Keys(), "\n")
	case "compact":
		return h.handleCompact()
	case "help":
		return protocol.StatusOK, strings.TrimSpace(helpText)
	default:
		return protocol.StatusError, fmt.Sprintf("invalid command %q", cmd.Name)
	}
}

func (h *Handler) handleSet(key, value string) (protocol.Status, string) {
	if err := h.store.Set([]byte(key), []byte(value)); err != nil {
		log.Logf("kvs: set failed: %v\n", err)
		return protocol.StatusError, err.Error()
	}
	return protocol.StatusOK, "ok"
}

func (h *Handler) handleGet(key string) (protocol.Status, string) {
	value, ok := h.store.Get([]byte(key))
	if !ok {
		return protocol.StatusNotFound, ""
	}
	return protocol.StatusOK, string(value)
}

func (h *Handler) handleRemove(key string) (protocol.Status, string) {
	err := h.store.Remove([]byte(key))
	switch {
	case err == nil:
		return protocol.StatusOK, "ok"
	case errors.Is(err, core.ErrKeyNotFound):
		return protocol.StatusNotFound, "Key not found"
	default:
		log.Logf("kvs: remove failed: %v\n", err)
		return protocol.StatusError, err.Error()
	}
}

func (h *Handler) handleExists(key string) (protocol.Status, string) {
	if _, ok := h.store.Get([]byte(key)); ok {
		return protocol.StatusOK, "true"
	}
	return protocol.StatusOK, "false"
}

func (h *Handler) handleCompact() (protocol.Status, string) {
	before := h.store.Stats().LogBytes
	if err := h.store.Compact(); err != nil {
		log.Logf("kvs: compact failed: %v\n", err)
		return protocol.StatusError, err.Error()
	}
	after := h.store.Stats().LogBytes
	return protocol.StatusOK, fmt.Sprintf("compacted %d -> %d bytes", before, after)
}

func reply(conn net.Conn, status protocol.Status, body string) error {
	payload, err := protocol.EncodeResponse(status, body)
	if err != nil {
		// only possible for a body over 4GB; tell the client instead
		payload, err = protocol.EncodeResponse(protocol.StatusError, err.Error())
		if err != nil {
			return err
		}
	}

	_, err = conn.Write(payload)
	return err
}

const helpText = `
Available Commands:

PING
  Check if the server is alive.
  Response: PONG!

SET <key> <value>
  Store a value for the given key.
  Overwrites the value if the key already exists.
  Response: ok

GET <key>
  Retrieve the value associated with the key.
  Response: value | Key not found

RM <key>  (alias: DELETE)
  Delete the key and its value.
  Response: ok | Key not found

EXISTS <key>
  Check if a key exists.
  Response: true | false

COUNT
  Return the total number of keys stored.
  Response: integer

LIST
  List all stored keys, one per line.

COMPACT
  Rewrite the log to drop overwritten and removed records.
  Response: compacted <before> -> <after> bytes

HELP
  Show this help message.

EXIT (shell only)
  Close the client connection.
`
