package protocol

import (
	"fmt"
	"io"
)

// ParseReply extracts the result bytes from a complete reply frame.
// n is the number of result bytes the command is expected to return.
//
// Reply frame structure:
//
//	Success:  [INSYNC][RESULT(n)...][OK]
//	Failure:  [INSYNC][FAILED] or [INSYNC][UNKNOWN]
//	Framing:  [NOSYNC]
//
// Non-success replies are returned as *ReplyError.
func ParseReply(frame []byte, n int) ([]byte, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty reply")
	}

	switch frame[0] {
	case RespInSync:
	case RespNoSync, RespFailed, RespUnknown:
		return nil, &ReplyError{Status: frame[0]}
	default:
		return nil, fmt.Errorf("invalid reply start: got 0x%02X, expected 0x%02X", frame[0], RespInSync)
	}

	if len(frame) == 2 && (frame[1] == RespFailed || frame[1] == RespUnknown) {
		return nil, &ReplyError{Status: frame[1]}
	}

	if len(frame) != n+2 {
		return nil, fmt.Errorf("reply length mismatch: got %d bytes, expected %d", len(frame), n+2)
	}

	status := frame[len(frame)-1]
	if status != RespOK {
		return nil, &ReplyError{Status: status}
	}

	if n == 0 {
		return nil, nil
	}
	return frame[1 : 1+n], nil
}

// ReadReply reads one reply from r and returns its n result bytes.
// It stops reading as soon as the reply is known to be unsuccessful,
// so a NOSYNC reply consumes exactly one byte.
func ReadReply(r io.Reader, n int) ([]byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}

	switch b[0] {
	case RespInSync:
	case RespNoSync, RespFailed, RespUnknown:
		return nil, &ReplyError{Status: b[0]}
	default:
		return nil, fmt.Errorf("invalid reply start: got 0x%02X, expected 0x%02X", b[0], RespInSync)
	}

	if n == 0 {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, fmt.Errorf("read reply status: %w", err)
		}
		if b[0] != RespOK {
			return nil, &ReplyError{Status: b[0]}
		}
		return nil, nil
	}

	data := make([]byte, n+1)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read reply data: %w", err)
	}
	if data[n] != RespOK {
		return nil, &ReplyError{Status: data[n]}
	}
	return data[:n], nil
}
