package client

import "github.com/0xRadioAc7iv/go-kvlog/internal/config"

type Option func(*config.Config)

func WithHost(host string) Option {
	return func(c *config.Config) {
		c.Host = host
	}
}

func WithPort(port int) Option {
	return func(c *config.Config) {
		c.Port = port
	}
}
