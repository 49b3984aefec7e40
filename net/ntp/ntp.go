// Package ntp encodes and decodes NTPv4 packets (RFC 5905) as far as needed
// to answer client requests.
package ntp

import (
	"encoding/binary"
	"errors"
	"time"
)

const (
	// Seconds from the NTP epoch (1900) to the Unix epoch (1970)
	unixEpochOffset int64 = 2208988800

	secondsPerEra int64 = 1 << 32

	ServerPort = 123

	PacketLen = 48

	LeapIndicatorNoWarning    = 0
	LeapIndicatorInsertSecond = 1
	LeapIndicatorDeleteSecond = 2
	LeapIndicatorUnknown      = 3

	VersionMin = 1
	VersionMax = 4

	ModeReserved0 = 0
	ModeClient    = 3
	ModeServer    = 4
)

// Time32 is the short NTP format used for root delay and dispersion.
type Time32 struct {
	Seconds  uint16
	Fraction uint16
}

// Time64 is the NTP timestamp format.
type Time64 struct {
	Seconds  uint32
	Fraction uint32
}

type Packet struct {
	LVM            uint8
	Stratum        uint8
	Poll           int8
	Precision      int8
	RootDelay      Time32
	RootDispersion Time32
	ReferenceID    uint32
	ReferenceTime  Time64
	OriginTime     Time64
	ReceiveTime    Time64
	TransmitTime   Time64
}

var errUnexpectedPacketSize = errors.New("unexpected packet size")

func Time64FromTime(t time.Time) Time64 {
	return Time64{
		Seconds:  uint32(t.Unix() + unixEpochOffset),
		Fraction: uint32((uint64(t.Nanosecond()) << 32) / uint64(time.Second)),
	}
}

// TimeFromTime64 converts t to a time.Time in the NTP era closest to ref.
func TimeFromTime64(t Time64, ref time.Time) time.Time {
	r := ref.Unix() + unixEpochOffset
	sec := r&^(secondsPerEra-1) | int64(t.Seconds)
	switch {
	case sec < r-secondsPerEra/2:
		sec += secondsPerEra
	case sec > r+secondsPerEra/2:
		sec -= secondsPerEra
	}
	nsec := (uint64(t.Fraction) * uint64(time.Second)) >> 32
	return time.Unix(sec-unixEpochOffset, int64(nsec)).UTC()
}

func (t Time64) IsZero() bool {
	return t.Seconds == 0 && t.Fraction == 0
}

func (t Time64) Before(u Time64) bool {
	return t.Seconds < u.Seconds ||
		t.Seconds == u.Seconds && t.Fraction < u.Fraction
}

func Time32FromDuration(d time.Duration) Time32 {
	if d < 0 {
		d = 0
	}
	sec := d / time.Second
	if sec > 1<<16-1 {
		return Time32{Seconds: 1<<16 - 1, Fraction: 1<<16 - 1}
	}
	frac := (uint64(d%time.Second) << 16) / uint64(time.Second)
	return Time32{Seconds: uint16(sec), Fraction: uint16(frac)}
}

func (t Time32) Duration() time.Duration {
	return time.Duration(t.Seconds)*time.Second +
		time.Duration((uint64(t.Fraction)*uint64(time.Second))>>16)
}

// ClockOffset returns the offset of the server clock relative to the client
// clock given the four timestamps of an exchange.
func ClockOffset(t0, t1, t2, t3 time.Time) time.Duration {
	return (t1.Sub(t0) + t2.Sub(t3)) / 2
}

func RoundTripDelay(t0, t1, t2, t3 time.Time) time.Duration {
	return t3.Sub(t0) - t2.Sub(t1)
}

func putTime32(b []byte, t Time32) {
	binary.BigEndian.PutUint16(b[0:], t.Seconds)
	binary.BigEndian.PutUint16(b[2:], t.Fraction)
}

func putTime64(b []byte, t Time64) {
	binary.BigEndian.PutUint32(b[0:], t.Seconds)
	binary.BigEndian.PutUint32(b[4:], t.Fraction)
}

func time32(b []byte) Time32 {
	return Time32{
		Seconds:  binary.BigEndian.Uint16(b[0:]),
		Fraction: binary.BigEndian.Uint16(b[2:]),
	}
}

func time64(b []byte) Time64 {
	return Time64{
		Seconds:  binary.BigEndian.Uint32(b[0:]),
		Fraction: binary.BigEndian.Uint32(b[4:]),
	}
}

// EncodePacket writes pkt to *b, reusing its capacity if possible.
func EncodePacket(b *[]byte, pkt *Packet) {
	if cap(*b) < PacketLen {
		*b = make([]byte, PacketLen)
	} else {
		*b = (*b)[:PacketLen]
	}
	buf := *b
	buf[0] = pkt.LVM
	buf[1] = pkt.Stratum
	buf[2] = byte(pkt.Poll)
	buf[3] = byte(pkt.Precision)
	putTime32(buf[4:], pkt.RootDelay)
	putTime32(buf[8:], pkt.RootDispersion)
	binary.BigEndian.PutUint32(buf[12:], pkt.ReferenceID)
	putTime64(buf[16:], pkt.ReferenceTime)
	putTime64(buf[24:], pkt.OriginTime)
	putTime64(buf[32:], pkt.ReceiveTime)
	putTime64(buf[40:], pkt.TransmitTime)
}

// DecodePacket reads the fixed header from b. Extension fields are ignored.
func DecodePacket(pkt *Packet, b []byte) error {
	if len(b) < PacketLen {
		return errUnexpectedPacketSize
	}
	pkt.LVM = b[0]
	pkt.Stratum = b[1]
	pkt.Poll = int8(b[2])
	pkt.Precision = int8(b[3])
	pkt.RootDelay = time32(b[4:])
	pkt.RootDispersion = time32(b[8:])
	pkt.ReferenceID = binary.BigEndian.Uint32(b[12:])
	pkt.ReferenceTime = time64(b[16:])
	pkt.OriginTime = time64(b[24:])
	pkt.ReceiveTime = time64(b[32:])
	pkt.TransmitTime = time64(b[40:])
	return nil
}

func (p *Packet) LeapIndicator() uint8 {
	return (p.LVM >> 6) & 0b0000_0011
}

func (p *Packet) SetLeapIndicator(l uint8) {
	if l&0b0000_0011 != l {
		panic("unexpected NTP leap indicator value")
	}
	p.LVM = (p.LVM & 0b0011_1111) | (l << 6)
}

func (p *Packet) Version() uint8 {
	return (p.LVM >> 3) & 0b0000_0111
}

func (p *Packet) SetVersion(v uint8) {
	if v&0b0000_0111 != v {
		panic("unexpected NTP version value")
	}
	p.LVM = (p.LVM & 0b1100_0111) | (v << 3)
}

func (p *Packet) Mode() uint8 {
	return p.LVM & 0b0000_0111
}

func (p *Packet) SetMode(m uint8) {
	if m&0b0000_0111 != m {
		panic("unexpected NTP mode value")
	}
	p.LVM = (p.LVM & 0b1111_1000) | m
}
