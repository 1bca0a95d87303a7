package localmedia

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/socialreel-backend/internal/platform/logger"
)

// Backend is the glue around the ffmpeg/ffprobe binaries that the
// compositor driver delegates decode, resize, crop and encode work to.
//
// REQUIRED BINARIES in the worker runtime:
// - ffprobe for stream/container inspection
// - ffmpeg for frame extraction, per-clip rendering and concatenation
//
// All operations are synchronous; call them from the build job, not
// from request handlers.
type Backend interface {
	AssertReady(ctx context.Context) error

	Probe(ctx context.Context, path string) (ProbeInfo, error)
	ExtractFrame(ctx context.Context, videoPath string, atSeconds float64, outPath string) error
	RenderClip(ctx context.Context, spec ClipSpec) error
	Concat(ctx context.Context, partPaths []string, outPath string, frameRate int) error
}

type ProbeInfo struct {
	Width           int
	Height          int
	DurationSeconds float64
}

// ClipSpec describes one normalized clip render: scale the source so
// its height fills the canvas, center-crop when wider than the canvas,
// center-pad when narrower, at a fixed frame rate. Still images are
// looped for StillDurationSeconds.
type ClipSpec struct {
	InputPath            string
	OutputPath           string
	IsStill              bool
	StillDurationSeconds float64
	CanvasWidth          int
	CanvasHeight         int
	FrameRate            int
}

type backend struct {
	log *logger.Logger

	ffmpegPath  string
	ffprobePath string

	defaultTimeout time.Duration
}

func New(log *logger.Logger) Backend {
	slog := log.With("service", "MediaBackend")
	return &backend{
		log:            slog,
		ffmpegPath:     "ffmpeg",
		ffprobePath:    "ffprobe",
		defaultTimeout: 10 * time.Minute,
	}
}

func (b *backend) AssertReady(ctx context.Context) error {
	for _, bin := range []string{b.ffmpegPath, b.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

func (b *backend) Probe(ctx context.Context, path string) (ProbeInfo, error) {
	if path == "" {
		return ProbeInfo{}, fmt.Errorf("path required")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return ProbeInfo{}, fmt.Errorf("ffprobe failed for %s: %w", filepath.Base(path), err)
	}

	var payload struct {
		Streams []struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return ProbeInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	if len(payload.Streams) == 0 {
		return ProbeInfo{}, fmt.Errorf("no video stream in %s", filepath.Base(path))
	}

	info := ProbeInfo{
		Width:  payload.Streams[0].Width,
		Height: payload.Streams[0].Height,
	}
	if d := strings.TrimSpace(payload.Format.Duration); d != "" && d != "N/A" {
		if parsed, parseErr := strconv.ParseFloat(d, 64); parseErr == nil {
			info.DurationSeconds = parsed
		}
	}
	if info.Width <= 0 || info.Height <= 0 {
		return ProbeInfo{}, fmt.Errorf("invalid dimensions %dx%d in %s", info.Width, info.Height, filepath.Base(path))
	}
	return info, nil
}

func (b *backend) ExtractFrame(ctx context.Context, videoPath string, atSeconds float64, outPath string) error {
	if videoPath == "" || outPath == "" {
		return fmt.Errorf("videoPath and outPath required")
	}
	if atSeconds < 0 {
		atSeconds = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.ffmpegPath,
		"-y",
		"-ss", strconv.FormatFloat(atSeconds, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "3",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg frame extract failed: %w; out=%s", err, string(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("frame output missing at %s", outPath)
	}
	return nil
}

func (b *backend) RenderClip(ctx context.Context, spec ClipSpec) error {
	if spec.InputPath == "" || spec.OutputPath == "" {
		return fmt.Errorf("input and output paths required")
	}
	if spec.CanvasWidth <= 0 || spec.CanvasHeight <= 0 {
		return fmt.Errorf("invalid canvas %dx%d", spec.CanvasWidth, spec.CanvasHeight)
	}
	fps := spec.FrameRate
	if fps <= 0 {
		fps = 30
	}

	ctx, cancel := context.WithTimeout(ctx, b.defaultTimeout)
	defer cancel()

	// Height-first scaling, then crop wide sources to the canvas and
	// pad narrow ones onto it; raw concat of mixed widths would not
	// produce a valid stream.
	vf := fmt.Sprintf(
		"scale=-2:%d,crop='min(iw,%d)':%d,pad=%d:%d:(ow-iw)/2:0,setsar=1,fps=%d,format=yuv420p",
		spec.CanvasHeight, spec.CanvasWidth, spec.CanvasHeight,
		spec.CanvasWidth, spec.CanvasHeight, fps,
	)

	args := []string{"-y"}
	if spec.IsStill {
		dur := spec.StillDurationSeconds
		if dur <= 0 {
			dur = 3
		}
		args = append(args, "-loop", "1", "-t", strconv.FormatFloat(dur, 'f', 3, 64))
	}
	args = append(args,
		"-i", spec.InputPath,
		"-vf", vf,
		"-r", strconv.Itoa(fps),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-an",
		spec.OutputPath,
	)

	cmd := exec.CommandContext(ctx, b.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render failed for %s: %w; out=%s", filepath.Base(spec.InputPath), err, string(out))
	}
	if _, err := os.Stat(spec.OutputPath); err != nil {
		return fmt.Errorf("render output missing at %s", spec.OutputPath)
	}
	return nil
}

func (b *backend) Concat(ctx context.Context, partPaths []string, outPath string, frameRate int) error {
	if len(partPaths) == 0 {
		return fmt.Errorf("no parts to concatenate")
	}
	if outPath == "" {
		return fmt.Errorf("outPath required")
	}
	fps := frameRate
	if fps <= 0 {
		fps = 30
	}

	ctx, cancel := context.WithTimeout(ctx, b.defaultTimeout)
	defer cancel()

	listPath := outPath + ".parts.txt"
	var sb strings.Builder
	for _, p := range partPaths {
		sb.WriteString("file '")
		sb.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		sb.WriteString("'\n")
	}
	if err := os.WriteFile(listPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	// Parts are rendered with identical codec settings, so stream copy
	// is enough here.
	cmd := exec.CommandContext(ctx, b.ffmpegPath,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-r", strconv.Itoa(fps),
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w; out=%s", err, string(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("concat output missing at %s", outPath)
	}
	return nil
}
