package client

import (
	"errors"
)

var (
	errUnknownTransport   = errors.New("unknown transport")
	errUnexpectedStatus   = errors.New("unexpected response status")
	errNoRemoteTimestamp  = errors.New("response carries no usable timestamp")
	errNoSession          = errors.New("no NTS session")
	errInvalidRemoteClock = errors.New("remote clock failed validation")
)
