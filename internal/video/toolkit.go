package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Zoom-pulse motion: a gentle sine oscillation of the zoom factor, about one
// full breath every two seconds at 30fps.
const (
	pulseBaseZoom  = 1.05
	pulseAmplitude = 0.03
	pulseFrequency = 0.12
)

// InputKind selects how an Edit's input is opened.
type InputKind int

const (
	InputImage InputKind = iota
	InputVideo
	InputColor
)

// Rect is a crop window in pixels.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Edit is one render: resize, set duration, set fps and optionally crop or pulse.
type Edit struct {
	Kind     InputKind
	Input    string // path, or a color name for InputColor
	Output   string
	Size     FrameSize
	Duration float64
	FPS      int

	// Loop repeats a video input until Duration is reached.
	Loop bool
	// Pulse applies the zoom-pulse motion to an image input.
	Pulse bool
	// Scale and Crop together replace the default cover-fill resize.
	Scale FrameSize
	Crop  *Rect
}

// Mux attaches narration to a finished timeline.
type Mux struct {
	Video  string
	Audio  string
	Output string
	FPS    int
	// AudioLimit truncates the audio input when positive.
	AudioLimit float64
}

// Media is what Probe reports about a file.
type Media struct {
	Duration float64
	Size     FrameSize
}

// Toolkit is the single adapter over the multimedia tooling.
type Toolkit interface {
	Check(ctx context.Context) error
	Probe(ctx context.Context, path string) (Media, error)
	Render(ctx context.Context, e Edit) error
	Concatenate(ctx context.Context, inputs []string, listPath, output string) error
	AttachAudio(ctx context.Context, m Mux) error
}

// FFmpeg implements Toolkit by shelling out to ffmpeg and ffprobe.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Check verifies both binaries can be executed.
func (f *FFmpeg) Check(ctx context.Context) error {
	for _, bin := range []string{f.ffmpegPath, f.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%w: %s not found: %v", ErrEnvironmentUnavailable, bin, err)
		}
		if err := exec.CommandContext(ctx, bin, "-version").Run(); err != nil {
			return fmt.Errorf("%w: %s -version failed: %v", ErrEnvironmentUnavailable, bin, err)
		}
	}
	return nil
}

type probeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads container duration and the first video stream's size.
func (f *FFmpeg) Probe(ctx context.Context, path string) (Media, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration:stream=width,height",
		"-of", "json",
		path,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return Media{}, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (Media, error) {
	var out probeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return Media{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var m Media
	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
		if err != nil {
			return Media{}, fmt.Errorf("failed to parse duration: %w", err)
		}
		m.Duration = d
	}
	for _, s := range out.Streams {
		if s.Width > 0 && s.Height > 0 {
			m.Size = FrameSize{Width: s.Width, Height: s.Height}
			break
		}
	}
	return m, nil
}

// Render runs one Edit.
func (f *FFmpeg) Render(ctx context.Context, e Edit) error {
	args, err := editArgs(e)
	if err != nil {
		return err
	}
	return f.run(ctx, "render", args)
}

// Concatenate joins clips that share codec parameters without re-encoding.
func (f *FFmpeg) Concatenate(ctx context.Context, inputs []string, listPath, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	if err := os.WriteFile(listPath, []byte(concatList(inputs)), 0644); err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		output,
	}
	return f.run(ctx, "concatenate", args)
}

// AttachAudio encodes the final container.
func (f *FFmpeg) AttachAudio(ctx context.Context, m Mux) error {
	return f.run(ctx, "mux", muxArgs(m))
}

func (f *FFmpeg) run(ctx context.Context, op string, args []string) error {
	log.Debug().Str("op", op).Strs("args", args).Msg("ffmpeg")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s failed: %w: %s", op, err, tail(stderr.String(), 400))
	}
	return nil
}

func editArgs(e Edit) ([]string, error) {
	if e.Output == "" {
		return nil, fmt.Errorf("edit has no output")
	}
	if e.Size.IsZero() {
		return nil, fmt.Errorf("edit has no frame size")
	}
	if e.Duration <= 0 {
		return nil, fmt.Errorf("edit duration must be positive, got %.3f", e.Duration)
	}
	fps := e.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	switch e.Kind {
	case InputImage:
		if !e.Pulse {
			args = append(args, "-loop", "1")
		}
		args = append(args, "-i", e.Input)
	case InputVideo:
		if e.Loop {
			args = append(args, "-stream_loop", "-1")
		}
		args = append(args, "-i", e.Input)
	case InputColor:
		color := e.Input
		if color == "" {
			color = "black"
		}
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", color, e.Size.Width, e.Size.Height, fps),
		)
	default:
		return nil, fmt.Errorf("unknown input kind %d", e.Kind)
	}

	args = append(args,
		"-vf", buildFilter(e, fps),
		"-t", formatSeconds(e.Duration),
		"-an",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
		e.Output,
	)
	return args, nil
}

// buildFilter assembles the -vf chain. Every branch ends at e.Size, square
// pixels, the target rate and yuv420p so outputs concatenate cleanly.
func buildFilter(e Edit, fps int) string {
	w, h := e.Size.Width, e.Size.Height
	cover := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", w, h, w, h)

	var chain []string
	switch {
	case e.Crop != nil && !e.Scale.IsZero():
		chain = append(chain,
			fmt.Sprintf("scale=%d:%d", e.Scale.Width, e.Scale.Height),
			fmt.Sprintf("crop=%d:%d:%d:%d", e.Crop.Width, e.Crop.Height, e.Crop.X, e.Crop.Y),
		)
	case e.Pulse && e.Kind == InputImage:
		chain = append(chain, cover, pulseFilter(e.Size, e.Duration, fps))
	default:
		chain = append(chain, cover)
	}

	chain = append(chain, "setsar=1", fmt.Sprintf("fps=%d", fps), "format=yuv420p")
	return strings.Join(chain, ",")
}

// pulseFilter builds a centered zoompan whose zoom breathes around pulseBaseZoom.
func pulseFilter(size FrameSize, seconds float64, fps int) string {
	// One spare second of frames; -t trims the tail.
	frames := int(seconds*float64(fps)) + fps
	breath := fmt.Sprintf("%.3f*sin(on*%.3f)", pulseAmplitude, pulseFrequency)

	return fmt.Sprintf(
		"zoompan=z='%.3f+%s':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d",
		pulseBaseZoom, breath,
		frames,
		size.Width, size.Height,
		fps,
	)
}

func muxArgs(m Mux) []string {
	fps := m.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", m.Video}
	if m.AudioLimit > 0 {
		// Input-side -t cuts the narration; the video stream is untouched.
		args = append(args, "-t", formatSeconds(m.AudioLimit))
	}
	args = append(args,
		"-i", m.Audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		"-f", "mp4",
		m.Output,
	)
	return args
}

// concatList renders an ffmpeg concat demuxer list, quoting each path.
func concatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(p, "'", `'\''`))
	}
	return b.String()
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
