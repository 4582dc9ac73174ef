package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font/opentype"
)

// Options configures a Renderer.
type Options struct {
	TempDir   string
	OutputDir string
	Size      FrameSize
	FPS       int
	Style     BookendStyle
}

// Job is one render request.
type Job struct {
	// ID prefixes scratch files and names the output. Generated when empty.
	ID string

	ImageLocators []string
	ClipLocators  []string

	// SceneCount defaults to the longer of the two locator lists.
	SceneCount int

	// Narration is the encoded audio whose duration anchors the timeline.
	Narration []byte

	// BrandName defaults to DefaultBrandName.
	BrandName string
	Slogan    string

	// OutputPath overrides <OutputDir>/campaign_<ID>.mp4.
	OutputPath string
}

// Result describes a finished render. Timeline paths point at scratch
// files that no longer exist once Render returns.
type Result struct {
	Path          string
	Plan          TimingPlan
	Timeline      Timeline
	VideoDuration float64
	Audio         AudioPlan
}

// Placeholders counts scenes that fell back to a synthetic frame.
func (r *Result) Placeholders() int {
	n := 0
	for _, s := range r.Timeline.Main {
		if s.IsPlaceholder {
			n++
		}
	}
	return n
}

// Renderer runs render jobs. Only the parsed font is shared; faces and all
// other per-job state are built inside Render, so one Renderer may serve
// concurrent jobs. Each job itself runs sequentially.
type Renderer struct {
	toolkit Toolkit
	fetcher Fetcher
	opts    Options
	font    *opentype.Font
}

func NewRenderer(toolkit Toolkit, fetcher Fetcher, opts Options) (*Renderer, error) {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Size.IsZero() {
		opts.Size = FrameSize{Width: DefaultWidth, Height: DefaultHeight}
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.Style == (BookendStyle{}) {
		opts.Style = DefaultBookendStyle()
	}

	f, err := parseBookendFont()
	if err != nil {
		return nil, err
	}
	if _, err := loadTypefaces(f, opts.Style); err != nil {
		return nil, err
	}

	return &Renderer{
		toolkit: toolkit,
		fetcher: fetcher,
		opts:    opts,
		font:    f,
	}, nil
}

// Render produces exactly one video file for job. Every scratch file the job
// creates is removed before Render returns, on success and on failure.
func (r *Renderer) Render(ctx context.Context, job Job) (*Result, error) {
	if len(job.ImageLocators) == 0 && len(job.ClipLocators) == 0 {
		return nil, ErrEmptyInput
	}
	if len(job.Narration) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrNarrationUnreadable)
	}

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if strings.TrimSpace(job.BrandName) == "" {
		job.BrandName = DefaultBrandName
	}
	count := job.SceneCount
	if count <= 0 {
		count = max(len(job.ImageLocators), len(job.ClipLocators))
	}
	output := job.OutputPath
	if output == "" {
		output = filepath.Join(r.opts.OutputDir, fmt.Sprintf("campaign_%s.mp4", job.ID))
	}

	logger := log.With().Str("jobId", job.ID).Logger()

	if err := r.toolkit.Check(ctx); err != nil {
		return nil, err
	}

	scratch, err := NewScratch(r.opts.TempDir, job.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		removed := scratch.Cleanup()
		logger.Debug().Int("removed", removed).Msg("scratch cleaned up")
	}()

	narrationPath := scratch.Path("narration.audio")
	if err := os.WriteFile(narrationPath, job.Narration, 0644); err != nil {
		return nil, fmt.Errorf("failed to write narration: %w", err)
	}
	media, err := r.toolkit.Probe(ctx, narrationPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNarrationUnreadable, err)
	}

	plan, err := PlanTiming(media.Duration, count)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("scenes", plan.SceneCount).
		Float64("narration", plan.NarrationDuration).
		Float64("intro", plan.IntroDuration).
		Float64("perScene", plan.PerSceneDuration).
		Float64("outro", plan.OutroDuration).
		Bool("degenerate", plan.Degenerate).
		Msg("timing planned")

	res := &Result{Plan: plan}
	if err := r.compose(ctx, job, scratch, narrationPath, output, res, logger); err != nil {
		return nil, err
	}

	res.Path = output
	logger.Info().
		Str("path", output).
		Float64("video", res.VideoDuration).
		Str("audio", string(res.Audio.Action)).
		Int("placeholders", res.Placeholders()).
		Msg("render complete")
	return res, nil
}

func (r *Renderer) compose(ctx context.Context, job Job, scratch *Scratch, narrationPath, output string, res *Result, logger zerolog.Logger) error {
	size, fps := r.opts.Size, r.opts.FPS

	rs := newResolver(r.toolkit, r.fetcher, scratch, size, fps, logger)
	scenes, err := rs.Resolve(ctx, BuildSources(job.ImageLocators, job.ClipLocators), res.Plan.SceneCount, res.Plan.PerSceneDuration)
	if err != nil {
		return err
	}

	fx := &effects{toolkit: r.toolkit, scratch: scratch, fps: fps, zoom: KenBurnsZoom, logger: logger}
	for i := range scenes {
		scenes[i] = fx.Apply(ctx, scenes[i])
	}
	res.Timeline.Main = scenes

	seq := &sequencer{toolkit: r.toolkit, scratch: scratch}
	mainPath, err := seq.ConcatMain(ctx, scenes)
	if err != nil {
		return err
	}

	realized := r.measure(ctx, mainPath, res.Timeline.MainDuration())
	if res.Plan.Reconcile(realized) {
		logger.Info().
			Float64("realizedMain", realized).
			Float64("outro", res.Plan.OutroDuration).
			Msg("outro shortened to absorb scene overshoot")
	}

	faces, err := loadTypefaces(r.font, r.opts.Style)
	if err != nil {
		logger.Warn().Err(err).Msg("bookends skipped")
	} else {
		be := &bookends{toolkit: r.toolkit, scratch: scratch, size: size, fps: fps, style: r.opts.Style, faces: faces, logger: logger}
		res.Timeline.Intro = r.bookend("intro", logger, func() (*Clip, error) { return be.Intro(ctx, job.BrandName, res.Plan) })
		res.Timeline.Outro = r.bookend("outro", logger, func() (*Clip, error) { return be.Outro(ctx, job.Slogan, res.Plan) })
	}

	timelinePath, err := seq.Assemble(ctx, res.Timeline.Intro, mainPath, res.Timeline.Outro)
	if err != nil {
		return err
	}

	res.VideoDuration = r.measure(ctx, timelinePath, res.Timeline.Duration())
	res.Audio = PlanAudio(res.VideoDuration, res.Plan.NarrationDuration)

	mx := &muxer{toolkit: r.toolkit, fps: fps}
	return mx.Encode(ctx, timelinePath, narrationPath, output, res.Audio)
}

// bookend renders one bookend. A failed bookend is dropped, not fatal.
func (r *Renderer) bookend(name string, logger zerolog.Logger, render func() (*Clip, error)) *Clip {
	clip, err := render()
	if err != nil {
		logger.Warn().Err(err).Str("bookend", name).Msg("bookend skipped")
		return nil
	}
	return clip
}

// measure probes a rendered file's duration, falling back to the nominal value.
func (r *Renderer) measure(ctx context.Context, path string, nominal float64) float64 {
	media, err := r.toolkit.Probe(ctx, path)
	if err != nil || media.Duration <= 0 {
		return nominal
	}
	return media.Duration
}
