package domain

import (
	"io"
	"log"
	"strconv"
)

type Config struct {
	Version  string
	Host     string
	Port     int
	Root     string
	Watch    bool
	BuildCmd string
}

// Addr is the listen address handed to net.Listen.
func (c Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

type Context struct {
	Config Config
	Out    io.Writer
	Logger *log.Logger
}

// NewContext wires the request logger to out with the fixed server prefix.
func NewContext(cfg Config, out io.Writer) *Context {
	return &Context{
		Config: cfg,
		Out:    out,
		Logger: log.New(out, LogPrefix, 0),
	}
}
