package protocol

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReplyError(t *testing.T) {
	err := &ReplyError{Operation: "program page", Status: RespFailed}

	msg := err.Error()
	if !strings.Contains(msg, "program page failed") {
		t.Errorf("error message should contain operation, got: %s", msg)
	}
	if !strings.Contains(msg, "0x11") {
		t.Errorf("error message should contain status code, got: %s", msg)
	}

	bare := &ReplyError{Status: RespNoSync}
	if !strings.Contains(bare.Error(), "out of sync") {
		t.Errorf("error message should name the status, got: %s", bare.Error())
	}
}

func TestIsReplyError(t *testing.T) {
	wrapped := fmt.Errorf("read signature: %w", &ReplyError{Status: RespNoSync})

	if !IsReplyError(wrapped) {
		t.Error("IsReplyError should see through wrapping")
	}
	if !IsNoSync(wrapped) {
		t.Error("IsNoSync should see through wrapping")
	}
	if IsNoSync(&ReplyError{Status: RespFailed}) {
		t.Error("FAILED is not a framing error")
	}
	if IsReplyError(errors.New("plain")) {
		t.Error("plain error is not a ReplyError")
	}
}

func TestStatusName(t *testing.T) {
	tests := []struct {
		code byte
		want string
	}{
		{RespOK, "ok"},
		{RespFailed, "failed"},
		{RespUnknown, "unknown command"},
		{RespInSync, "in sync"},
		{RespNoSync, "out of sync"},
		{0x99, "unexpected response 0x99"},
	}

	for _, tt := range tests {
		if got := StatusName(tt.code); got != tt.want {
			t.Errorf("StatusName(0x%02X) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
