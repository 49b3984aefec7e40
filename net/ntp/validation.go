package ntp

import (
	"errors"
)

var (
	errUnexpectedRequest  = errors.New("unexpected request structure")
	errUnexpectedResponse = errors.New("unexpected response structure")
)

// ValidateRequest accepts client mode requests of any supported version and
// the mode 0 requests sent by version 1 clients.
func ValidateRequest(req *Packet) error {
	li := req.LeapIndicator()
	if li != LeapIndicatorNoWarning && li != LeapIndicatorUnknown {
		return errUnexpectedRequest
	}
	vn := req.Version()
	if vn < VersionMin || VersionMax < vn {
		return errUnexpectedRequest
	}
	mode := req.Mode()
	if vn == 1 && mode != ModeReserved0 || vn != 1 && mode != ModeClient {
		return errUnexpectedRequest
	}
	if req.TransmitTime.IsZero() {
		return errUnexpectedRequest
	}
	return nil
}

func ValidateResponseMetadata(resp *Packet) error {
	if resp.LeapIndicator() == LeapIndicatorUnknown {
		return errUnexpectedResponse
	}
	if resp.Version() != 3 && resp.Version() != 4 {
		return errUnexpectedResponse
	}
	if resp.Mode() != ModeServer {
		return errUnexpectedResponse
	}
	if resp.Stratum == 0 || resp.Stratum > 15 {
		return errUnexpectedResponse
	}
	return nil
}
