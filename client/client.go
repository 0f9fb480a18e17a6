package client

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/0xRadioAc7iv/go-kvlog/internal/config"
	"github.com/0xRadioAc7iv/go-kvlog/internal/protocol"
)

var ErrKeyNotFound = errors.New("key not found")

// ServerError carries the body of a StatusError response.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server: " + e.Message
}

// Client talks to a kvs server over a single TCP connection. It is not safe
// for concurrent use; open one Client per goroutine.
type Client struct {
	conn net.Conn
}

func Connect(opts ...Option) (*Client, error) {
	cfg := config.Default()

	for _, opt := range opts {
		opt(cfg)
	}

	conn, err := net.Dial("tcp", cfg.Addr())
	if err != nil {
		return nil, err
	}

	return &Client{conn: conn}, nil
}

func (c *Client) Ping() error {
	_, err := c.call("ping", "", "")
	return err
}

func (c *Client) Set(key, value string) error {
	_, err := c.call("set", key, value)
	return err
}

// Get returns the value for key. found is false when the server has no
// such key.
func (c *Client) Get(key string) (value string, found bool, err error) {
	value, err = c.call("get", key, "")
	if errors.Is(err, ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Remove deletes key, returning ErrKeyNotFound when it was not present.
func (c *Client) Remove(key string) error {
	_, err := c.call("rm", key, "")
	return err
}

func (c *Client) Exists(key string) (bool, error) {
	res, err := c.call("exists", key, "")
	if err != nil {
		return false, err
	}
	return res == "true", nil
}

func (c *Client) Count() (int, error) {
	res, err := c.call("count", "", "")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(res)
}

func (c *Client) List() ([]string, error) {
	res, err := c.call("list", "", "")
	if err != nil {
		return nil, err
	}
	if res == "" {
		return nil, nil
	}
	return strings.Split(res, "\n"), nil
}

// Compact asks the server to rewrite its log and returns the server's
// summary line.
func (c *Client) Compact() (string, error) {
	return c.call("compact", "", "")
}

// Execute sends a raw command and returns the decoded response whatever its
// status. Used by the interactive shell.
func (c *Client) Execute(cmd, key, value string) (*protocol.Response, error) {
	payload, err := protocol.EncodeCommand(cmd, key, value)
	if err != nil {
		return nil, err
	}

	if _, err := c.conn.Write(payload); err != nil {
		return nil, fmt.Errorf("send %s: %w", cmd, err)
	}

	resp, err := protocol.DecodeResponse(c.conn)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", cmd, err)
	}

	return resp, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(cmd, key, value string) (string, error) {
	resp, err := c.Execute(cmd, key, value)
	if err != nil {
		return "", err
	}

	switch resp.Status {
	case protocol.StatusOK:
		return resp.Body, nil
	case protocol.StatusNotFound:
		return "", ErrKeyNotFound
	default:
		return "", &ServerError{Message: resp.Body}
	}
}
