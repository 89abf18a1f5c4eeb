package protocol

import (
	"errors"
	"fmt"
)

// ReplyError represents an unsuccessful reply from the programmer.
// Status is the response code that ended the reply.
type ReplyError struct {
	// Operation is the command that failed
	Operation string

	// Status is RespNoSync, RespFailed, RespUnknown or an unexpected byte
	Status byte
}

func (e *ReplyError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("programmer replied %s (0x%02X)", StatusName(e.Status), e.Status)
	}
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Operation, StatusName(e.Status), e.Status)
}

// IsReplyError returns true if err is or wraps a ReplyError.
func IsReplyError(err error) bool {
	var re *ReplyError
	return errors.As(err, &re)
}

// IsNoSync returns true if err is or wraps a ReplyError for a framing error.
func IsNoSync(err error) bool {
	var re *ReplyError
	return errors.As(err, &re) && re.Status == RespNoSync
}

// StatusName returns a human-readable name for a response code.
func StatusName(code byte) string {
	switch code {
	case RespOK:
		return "ok"
	case RespFailed:
		return "failed"
	case RespUnknown:
		return "unknown command"
	case RespInSync:
		return "in sync"
	case RespNoSync:
		return "out of sync"
	default:
		return fmt.Sprintf("unexpected response 0x%02X", code)
	}
}
