package config

import (
	"strings"
	"testing"
)

func TestVersionString(t *testing.T) {
	old := Version
	Version = "1.2.3"
	defer func() { Version = old }()

	got := VersionString("toolmectl")
	if !strings.HasPrefix(got, "toolmectl 1.2.3 (") {
		t.Errorf("VersionString() = %q", got)
	}
	if ua := UserAgent("toolmectl"); ua != "toolmectl/1.2.3" {
		t.Errorf("UserAgent() = %q", ua)
	}
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	if info.Version != Version || info.GoVersion == "" || info.OS == "" {
		t.Errorf("GetBuildInfo() = %+v", info)
	}
}
