package zookeeper

import (
    "errors"
    "fmt"
)

var (
    ErrConnect        = errors.New("zookeeper: connection failed")
    ErrConnectTimeout = fmt.Errorf("%w: session handshake timed out", ErrConnect)
    ErrNotConnected   = errors.New("zookeeper: not connected")
    ErrConfigLoad     = errors.New("zookeeper: failed to load settings")
    ErrInvalidConfig  = errors.New("zookeeper: invalid config")
)
