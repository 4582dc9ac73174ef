package video

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// errNotApplicable tells the resolver a strategy has nothing to work with for a slot.
var errNotApplicable = errors.New("strategy not applicable")

// sceneSlot pairs the optional clip and image supplied for one scene index.
type sceneSlot struct {
	index int
	clip  *SceneSource
	image *SceneSource
}

// BuildSources turns caller lists into ordered SceneSource values.
// Clip ordinals and image ordinals both count from zero.
func BuildSources(imageLocators, clipLocators []string) []SceneSource {
	sources := make([]SceneSource, 0, len(imageLocators)+len(clipLocators))
	for i, loc := range clipLocators {
		sources = append(sources, SceneSource{Kind: SourceClip, Locator: loc, Ordinal: i})
	}
	for i, loc := range imageLocators {
		sources = append(sources, SceneSource{Kind: SourceImage, Locator: loc, Ordinal: i})
	}
	return sources
}

func buildSlots(sources []SceneSource, count int) []sceneSlot {
	slots := make([]sceneSlot, count)
	for i := range slots {
		slots[i].index = i
	}
	for i := range sources {
		src := &sources[i]
		if src.Ordinal < 0 || src.Ordinal >= count || src.Locator == "" {
			continue
		}
		switch src.Kind {
		case SourceClip:
			slots[src.Ordinal].clip = src
		case SourceImage:
			slots[src.Ordinal].image = src
		}
	}
	return slots
}

type strategy struct {
	origin Origin
	run    func(ctx context.Context, slot sceneSlot, seconds float64) (ResolvedScene, error)
}

type rawImage struct {
	path string
	err  error
}

// resolver produces exactly one ResolvedScene per slot. It is owned by a single job.
type resolver struct {
	toolkit Toolkit
	fetcher Fetcher
	scratch *Scratch
	size    FrameSize
	fps     int
	logger  zerolog.Logger

	// firstImage holds the first raw image that downloaded successfully in this job.
	firstImage    []byte
	firstImageExt string

	// downloads memoizes per-slot fetches so the animated and static strategies share one attempt budget.
	downloads map[int]rawImage
}

func newResolver(toolkit Toolkit, fetcher Fetcher, scratch *Scratch, size FrameSize, fps int, logger zerolog.Logger) *resolver {
	return &resolver{
		toolkit:   toolkit,
		fetcher:   fetcher,
		scratch:   scratch,
		size:      size,
		fps:       fps,
		logger:    logger,
		downloads: make(map[int]rawImage),
	}
}

func (r *resolver) strategies() []strategy {
	return []strategy{
		{OriginProvidedClip, r.fromClip},
		{OriginRenderedFromImage, r.fromImageAnimated},
		{OriginDownloadedFallback, r.fromImageStatic},
		{OriginCachedReuse, r.fromCache},
	}
}

// Resolve returns exactly count scenes of the given duration. The only error
// it returns is ErrEnvironmentUnavailable (or context cancellation).
func (r *resolver) Resolve(ctx context.Context, sources []SceneSource, count int, seconds float64) ([]ResolvedScene, error) {
	scenes := make([]ResolvedScene, 0, count)

	for _, slot := range buildSlots(sources, count) {
		scene, err := r.resolveSlot(ctx, slot, seconds)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, scene)
	}

	for len(scenes) < count {
		r.logger.Warn().Int("scene", len(scenes)).Msg("scene missing after resolution, filling with placeholder")
		scene, err := r.placeholder(ctx, len(scenes), seconds)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, scene)
	}

	return scenes, nil
}

func (r *resolver) resolveSlot(ctx context.Context, slot sceneSlot, seconds float64) (ResolvedScene, error) {
	for _, s := range r.strategies() {
		scene, err := s.run(ctx, slot, seconds)
		if err == nil {
			scene.SourceOrdinal = slot.index
			scene.Origin = s.origin
			r.logger.Info().
				Int("scene", slot.index).
				Str("origin", string(s.origin)).
				Float64("duration", seconds).
				Msg("scene resolved")
			return scene, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ResolvedScene{}, ctxErr
		}
		if !errors.Is(err, errNotApplicable) {
			r.logger.Warn().Err(err).Int("scene", slot.index).Str("strategy", string(s.origin)).Msg("scene strategy failed")
		}
	}

	return r.placeholder(ctx, slot.index, seconds)
}

func (r *resolver) fromClip(ctx context.Context, slot sceneSlot, seconds float64) (ResolvedScene, error) {
	if slot.clip == nil {
		return ResolvedScene{}, errNotApplicable
	}
	if _, err := os.Stat(slot.clip.Locator); err != nil {
		return ResolvedScene{}, fmt.Errorf("%w: %v", errResourceUnavailable, err)
	}

	// Loop when the clip is shorter than the slot or its length is unknown.
	loop := true
	if media, err := r.toolkit.Probe(ctx, slot.clip.Locator); err == nil && media.Duration >= seconds {
		loop = false
	}

	out := r.scratch.Path(fmt.Sprintf("scene%02d_clip.mp4", slot.index))
	err := r.toolkit.Render(ctx, Edit{
		Kind:     InputVideo,
		Input:    slot.clip.Locator,
		Output:   out,
		Size:     r.size,
		Duration: seconds,
		FPS:      r.fps,
		Loop:     loop,
	})
	if err != nil {
		return ResolvedScene{}, fmt.Errorf("%w: %v", errResourceUnavailable, err)
	}
	return r.scene(out, seconds), nil
}

func (r *resolver) fromImageAnimated(ctx context.Context, slot sceneSlot, seconds float64) (ResolvedScene, error) {
	return r.fromImage(ctx, slot, seconds, true)
}

func (r *resolver) fromImageStatic(ctx context.Context, slot sceneSlot, seconds float64) (ResolvedScene, error) {
	return r.fromImage(ctx, slot, seconds, false)
}

func (r *resolver) fromImage(ctx context.Context, slot sceneSlot, seconds float64, pulse bool) (ResolvedScene, error) {
	if slot.image == nil {
		return ResolvedScene{}, errNotApplicable
	}

	raw := r.download(ctx, slot)
	if raw.err != nil {
		return ResolvedScene{}, raw.err
	}

	suffix := "static"
	if pulse {
		suffix = "pulse"
	}
	out := r.scratch.Path(fmt.Sprintf("scene%02d_%s.mp4", slot.index, suffix))
	err := r.toolkit.Render(ctx, Edit{
		Kind:     InputImage,
		Input:    raw.path,
		Output:   out,
		Size:     r.size,
		Duration: seconds,
		FPS:      r.fps,
		Pulse:    pulse,
	})
	if err != nil {
		return ResolvedScene{}, fmt.Errorf("%w: %v", errResourceUnavailable, err)
	}
	return r.scene(out, seconds), nil
}

// fromCache stands in for a slot whose own download failed. A slot whose
// image downloaded but would not render goes to the placeholder instead.
func (r *resolver) fromCache(ctx context.Context, slot sceneSlot, seconds float64) (ResolvedScene, error) {
	if slot.image == nil || r.firstImage == nil {
		return ResolvedScene{}, errNotApplicable
	}
	if raw, ok := r.downloads[slot.index]; !ok || raw.err == nil {
		return ResolvedScene{}, errNotApplicable
	}

	in := r.scratch.Path(fmt.Sprintf("scene%02d_cached.%s", slot.index, r.firstImageExt))
	if err := os.WriteFile(in, r.firstImage, 0644); err != nil {
		return ResolvedScene{}, fmt.Errorf("failed to write cached image: %w", err)
	}

	out := r.scratch.Path(fmt.Sprintf("scene%02d_cached.mp4", slot.index))
	err := r.toolkit.Render(ctx, Edit{
		Kind:     InputImage,
		Input:    in,
		Output:   out,
		Size:     r.size,
		Duration: seconds,
		FPS:      r.fps,
	})
	if err != nil {
		return ResolvedScene{}, fmt.Errorf("%w: %v", errResourceUnavailable, err)
	}
	return r.scene(out, seconds), nil
}

// placeholder renders a solid black scene. Failure here means the toolkit
// itself is broken, so it is fatal for the job.
func (r *resolver) placeholder(ctx context.Context, index int, seconds float64) (ResolvedScene, error) {
	out := r.scratch.Path(fmt.Sprintf("scene%02d_placeholder.mp4", index))
	err := r.toolkit.Render(ctx, Edit{
		Kind:     InputColor,
		Input:    "black",
		Output:   out,
		Size:     r.size,
		Duration: seconds,
		FPS:      r.fps,
	})
	if err != nil {
		return ResolvedScene{}, fmt.Errorf("%w: placeholder render failed: %v", ErrEnvironmentUnavailable, err)
	}

	r.logger.Warn().Int("scene", index).Msg("scene replaced with placeholder")

	scene := r.scene(out, seconds)
	scene.SourceOrdinal = index
	scene.IsPlaceholder = true
	scene.Origin = OriginSyntheticPlaceholder
	return scene, nil
}

// download fetches the slot's image once per job and writes it to scratch.
func (r *resolver) download(ctx context.Context, slot sceneSlot) rawImage {
	if raw, ok := r.downloads[slot.index]; ok {
		return raw
	}

	raw := r.fetchRaw(ctx, slot)
	r.downloads[slot.index] = raw
	return raw
}

func (r *resolver) fetchRaw(ctx context.Context, slot sceneSlot) rawImage {
	data, err := r.fetcher.Fetch(ctx, slot.image.Locator)
	if err != nil {
		return rawImage{err: err}
	}

	_, format, err := checkImage(data)
	if err != nil {
		return rawImage{err: err}
	}

	path := r.scratch.Path(fmt.Sprintf("scene%02d_raw.%s", slot.index, format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return rawImage{err: fmt.Errorf("failed to write image: %w", err)}
	}

	if r.firstImage == nil {
		r.firstImage = data
		r.firstImageExt = format
	}
	return rawImage{path: path}
}

func (r *resolver) scene(path string, seconds float64) ResolvedScene {
	return ResolvedScene{
		Path:      path,
		Duration:  seconds,
		FrameSize: r.size,
	}
}
