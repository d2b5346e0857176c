package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %s, want %s", info.Version, Version)
	}
	if !strings.HasPrefix(info.String(), "gdsync "+Version) {
		t.Errorf("String() = %s", info.String())
	}
	if !strings.HasPrefix(info.UserAgent(), "gdsync/") || !strings.Contains(info.UserAgent(), info.Platform) {
		t.Errorf("UserAgent() = %s", info.UserAgent())
	}
}
