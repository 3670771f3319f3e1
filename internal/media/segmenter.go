package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/DishankChauhan/streamX/internal/logger"
	rtmperrors "github.com/DishankChauhan/streamX/internal/errors"
)

// Segmenter owns a spawned HLS-segmenter child process (ffmpeg-compatible
// argv), its stdin pipe, and an FLVWriter that serializes publisher media
// into that pipe. Its stdout/stderr are never read; the core only cares
// about feeding bytes in and observing exit.
type Segmenter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	flv    *FLVWriter
	done   chan struct{}
	exitErr error
}

// Spawn launches the segmenter binary for streamKey, writing segments and a
// rolling playlist into dir. throttleBytesPerSec<=0 disables the stdin rate
// cap. The argv shape matches the contract every core ingest component must
// honor: `<segmenter> -f flv -i pipe:0 -c copy -f hls -hls_time <secs>
// -hls_list_size <n> -hls_flags delete_segments -hls_segment_filename
// <dir>/segment_%03d.ts <dir>/playlist.m3u8`.
func Spawn(ctx context.Context, segmenterPath, dir string, segmentDurationSecs, playlistSize int, throttleBytesPerSec int64, log *logger.Logger) (*Segmenter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, rtmperrors.NewProtocolError("segmenter.mkdir", err)
	}

	segmentPattern := dir + "/segment_%03d.ts"
	playlistPath := dir + "/playlist.m3u8"

	cmd := exec.Command(segmenterPath,
		"-f", "flv",
		"-i", "pipe:0",
		"-c", "copy",
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentDurationSecs),
		"-hls_list_size", strconv.Itoa(playlistSize),
		"-hls_flags", "delete_segments",
		"-hls_segment_filename", segmentPattern,
		playlistPath,
	)
	cmd.Stdout = nil
	cmd.Stderr = nil

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, rtmperrors.NewProtocolError("segmenter.stdin_pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, rtmperrors.NewProtocolError("segmenter.spawn", fmt.Errorf("%s: %w", segmenterPath, err))
	}

	throttled := NewThrottledWriter(ctx, stdin, throttleBytesPerSec)
	s := &Segmenter{
		cmd:   cmd,
		stdin: stdin,
		flv:   NewFLVWriter(throttled),
		done:  make(chan struct{}),
	}

	go func() {
		s.exitErr = cmd.Wait()
		close(s.done)
		if log != nil {
			log.Info("segmenter exited", "stream_dir", dir, "error", s.exitErr)
		}
	}()

	return s, nil
}

// WriteTag forwards one FLV media tag to the segmenter's stdin.
func (s *Segmenter) WriteTag(typeID uint8, timestamp uint32, payload []byte) error {
	if err := s.flv.WriteTag(typeID, timestamp, payload); err != nil {
		return rtmperrors.NewProtocolError("segmenter.write", err)
	}
	return nil
}

// Done reports when the segmenter process has exited.
func (s *Segmenter) Done() <-chan struct{} { return s.done }

// Stop closes stdin and terminates the child process if still running.
func (s *Segmenter) Stop() {
	_ = s.flv.Close()
	_ = s.stdin.Close()
	select {
	case <-s.done:
		return
	default:
	}
	_ = s.cmd.Process.Kill()
}
