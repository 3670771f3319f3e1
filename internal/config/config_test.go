package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RTMPPort != 1935 {
		t.Fatalf("expected default rtmp_port 1935, got %d", cfg.RTMPPort)
	}
	if cfg.MaxStreams != 16 {
		t.Fatalf("expected default max_streams 16, got %d", cfg.MaxStreams)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "rtmp_port: 19350\nmax_streams: 4\nstreams_dir: /var/streamx\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RTMPPort != 19350 {
		t.Fatalf("expected overridden rtmp_port 19350, got %d", cfg.RTMPPort)
	}
	if cfg.MaxStreams != 4 {
		t.Fatalf("expected overridden max_streams 4, got %d", cfg.MaxStreams)
	}
	if cfg.SegmentDuration != 6 {
		t.Fatalf("expected default segment_duration to survive, got %d", cfg.SegmentDuration)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.MaxStreams = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for max_streams=0")
	}
}

func TestStreamDirAndPlaylistPath(t *testing.T) {
	cfg := Defaults()
	cfg.StreamsDir = "/data/streams"
	if got := cfg.StreamDir("mykey"); got != "/data/streams/mykey" {
		t.Fatalf("StreamDir = %q", got)
	}
	if got := cfg.PlaylistPath("mykey"); got != "/data/streams/mykey/playlist.m3u8" {
		t.Fatalf("PlaylistPath = %q", got)
	}
}
