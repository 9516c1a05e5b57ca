package coap

import (
	"testing"
	"time"

	"github.com/plgd-dev/go-coap/v3/message/codes"
)

func TestCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeContent, codes.Content},
		{CodeCreated, codes.Created},
		{CodeChanged, codes.Changed},
		{CodeBadRequest, codes.BadRequest},
		{CodeUnsupportedFormat, codes.UnsupportedMediaType},
		{CodeNotFound, codes.NotFound},
		{CodeInternalError, codes.InternalServerError},
		{Code(99), codes.InternalServerError},
	}
	for _, tt := range tests {
		if got := tt.code.wire(); got != tt.want {
			t.Errorf("Code(%d).wire() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestHostOnly(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"10.0.0.5:5683", "10.0.0.5"},
		{"10.0.0.5", "10.0.0.5"},
		{"[fd00::1]:5683", "fd00::1"},
	}
	for _, tt := range tests {
		if got := hostOnly(tt.addr); got != tt.want {
			t.Errorf("hostOnly(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestClientTarget(t *testing.T) {
	c := NewClient(5683, 5*time.Second)
	if got := c.target("10.0.0.5"); got != "10.0.0.5:5683" {
		t.Errorf("target = %q", got)
	}
	if got := c.target("fd00::1"); got != "[fd00::1]:5683" {
		t.Errorf("target = %q", got)
	}
}
