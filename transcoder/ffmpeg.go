package transcoder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/strmhub/transcoder/config"
	"github.com/strmhub/transcoder/errors"
	"github.com/strmhub/transcoder/log"
	"github.com/strmhub/transcoder/subprocess"
	"github.com/strmhub/transcoder/video"
)

// Job is a running encoder child. Progress carries the encoded position in
// seconds as a single-slot watch channel, closed when the child's stdout
// ends.
type Job struct {
	progress chan float64
	stderr   *subprocess.Tail
	done     chan struct{}
	waitErr  error

	// interrupt signals the child. Injectable so tests can observe
	// cancellation without a real process.
	interrupt func()
}

// encoderStarter launches an encoder writing an HLS rendition of path into
// outDir. Injectable so tests can run without ffmpeg installed.
type encoderStarter func(ctx context.Context, requestID, path, outDir string, encodeArgs []string, startTime uint32) (*Job, error)

// The context is not wired to the child, the encoder outlives the request
// that started it and is only stopped by Interrupt.
func startEncoder(_ context.Context, requestID, path, outDir string, encodeArgs []string, startTime uint32) (*Job, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}

	args := []string{
		"-nostats", "-hide_banner", "-loglevel", "warning",
		"-progress", "pipe:1",
		"-ss", strconv.FormatUint(uint64(startTime), 10),
		"-i", path,
		"-f", "hls",
		"-hls_flags", "temp_file",
		"-hls_allow_cache", "1",
		"-hls_list_size", "0",
		"-hls_time", strconv.Itoa(config.SegmentTime),
	}
	args = append(args, encodeArgs...)
	args = append(args,
		"-hls_segment_filename", filepath.Join(outDir, "segments-%02d.ts"),
		filepath.Join(outDir, manifestName),
	)

	cmd := exec.Command("ffmpeg", args...)
	stderr := &subprocess.Tail{MaxLines: 100}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	log.Log(requestID, "starting ffmpeg", "args", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return nil, &errors.FFmpegError{Stderr: err.Error()}
	}

	job := &Job{
		progress: make(chan float64, 1),
		stderr:   stderr,
		done:     make(chan struct{}),
		interrupt: func() {
			_ = cmd.Process.Signal(syscall.SIGINT)
		},
	}
	readDone := make(chan struct{})
	go watchProgress(stdout, job.progress, readDone)
	go func() {
		<-readDone
		job.waitErr = cmd.Wait()
		close(job.done)
	}()
	return job, nil
}

// watchProgress parses the key=value progress feed and publishes the latest
// out_time_us as seconds. Values only move forward, so dropping stale ones
// is safe.
func watchProgress(r io.Reader, progress chan float64, readDone chan struct{}) {
	defer close(readDone)
	defer close(progress)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), "=")
		if !found || key != "out_time_us" {
			continue
		}
		us, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil {
			continue
		}
		publishLatest(progress, float64(us)/1_000_000)
	}
}

// publishLatest overwrites the single buffered slot without ever blocking
// the reader goroutine.
func publishLatest(ch chan float64, v float64) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// AwaitReady blocks until the encoder has written enough past startTime for
// the first segments to exist, or until it exits. A clean early exit is
// fine, the file was just shorter than the readiness window.
func (j *Job) AwaitReady(startTime uint32) error {
	threshold := float64(startTime) + 1.5*float64(config.SegmentTime)
	for encoded := range j.progress {
		if encoded >= threshold {
			return nil
		}
	}
	<-j.done
	if j.waitErr != nil {
		stderr := j.stderr.String()
		if strings.Contains(stderr, "matches no streams.") {
			return &errors.ArgumentError{Msg: "Invalid audio index"}
		}
		return &errors.FFmpegError{Stderr: stderr}
	}
	return nil
}

// Interrupt asks the encoder to stop. SIGINT lets ffmpeg finalize the
// playlist instead of leaving a truncated one behind.
func (j *Job) Interrupt() {
	if j.interrupt != nil {
		j.interrupt()
	}
}

func videoEncodeArgs(quality video.Quality) []string {
	if quality == video.Original {
		return []string{"-map", "0:V:0", "-c:v", "copy"}
	}
	return []string{
		"-map", "0:V:0",
		"-c:v", "libx264",
		"-crf", "21",
		"-preset", "veryfast",
		// Scale down only. Upscaling wastes bits on detail that is not there.
		"-vf", fmt.Sprintf("scale=-2:'min(%d,ih)'", quality.Height()),
		"-bufsize", strconv.FormatUint(uint64(quality.MaxBitrate())*5, 10),
		"-b:v", strconv.FormatUint(uint64(quality.AverageBitrate()), 10),
		"-maxrate", strconv.FormatUint(uint64(quality.MaxBitrate()), 10),
		// Keyframes must land on segment boundaries or seeking breaks.
		"-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%d)", config.SegmentTime),
		"-strict", "-2",
		"-segment_time_delta", "0.1",
	}
}

func audioEncodeArgs(audio uint32) []string {
	return []string{
		"-map", fmt.Sprintf("0:a:%d", audio),
		"-c:a", "aac",
		"-ac", "2",
		"-b:a", "128k",
	}
}
