//go:build windows

package commands

import (
	"strings"
	"testing"
)

func TestDaemonizeUnsupported(t *testing.T) {
	err := daemonize()
	if err == nil {
		t.Fatal("want error on windows, got nil")
	}
	if !strings.Contains(err.Error(), "--foreground") {
		t.Errorf("error should point at --foreground, got %q", err)
	}
}
