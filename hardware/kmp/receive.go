package kmp

import (
	"time"

	"github.com/juju/errors"
)

const DefaultTimeout = 1000 * time.Millisecond

const minPollInterval = time.Millisecond

type rxState uint8

const (
	rxAwaitingData rxState = iota
	rxAccumulating
	rxComplete
	rxTimedOut
)

func (s rxState) String() string {
	switch s {
	case rxAwaitingData:
		return "awaiting"
	case rxAccumulating:
		return "accumulating"
	case rxComplete:
		return "complete"
	case rxTimedOut:
		return "timeout"
	}
	return "invalid"
}

// Receive polls src until end marker or timeout, then decodes frame.
// Zero timeout means DefaultTimeout.
func Receive(src Transport, timeout time.Duration, warn func(error)) ([]byte, error) {
	var buf Packet
	raw, err := receiveRaw(src, &buf, timeout)
	if err != nil {
		return nil, err
	}
	return Decode(raw, warn)
}

func receiveRaw(src Transport, buf *Packet, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	poll := timeout / 16
	if poll < minPollInterval {
		poll = minPollInterval
	}
	buf.Reset()

	state := rxAwaitingData
	seenEnd := false
	tbegin := time.Now()
	for !seenEnd {
		if elapsed := time.Since(tbegin); elapsed > timeout {
			state = rxTimedOut
			return nil, errors.Timeoutf("kmp receive state=%s elapsed=%v received=%x", state, elapsed, buf.Bytes())
		}
		if !src.Available() {
			time.Sleep(poll)
			continue
		}
		b, err := src.ReadByte()
		if err != nil {
			if errors.Cause(err) == ErrNoData {
				continue
			}
			return nil, errors.Annotatef(err, "kmp receive state=%s", state)
		}

		switch b {
		case StrayStart:
		case EndMarker:
			seenEnd = true
			state = rxComplete
		default:
			if err = buf.AppendByte(b); err != nil {
				return nil, errors.Annotatef(err, "kmp receive received=%x", buf.Bytes())
			}
			state = rxAccumulating
		}
	}
	return buf.Bytes(), nil
}
