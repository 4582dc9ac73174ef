package video

// Output profile shared by every clip the pipeline produces. Intermediate clips
// are encoded with the same codec, pixel format and rate so the concat demuxer
// can join them with stream copy.
const (
	DefaultWidth  = 1080
	DefaultHeight = 1080
	DefaultFPS    = 30

	DefaultBrandName = "Coca-Cola"
)

// SourceKind distinguishes still images from pre-rendered looping clips.
type SourceKind string

const (
	SourceImage SourceKind = "image"
	SourceClip  SourceKind = "clip"
)

// SceneSource is one caller-supplied input for a scene slot.
type SceneSource struct {
	Kind    SourceKind
	Locator string // URL or local path
	Ordinal int
}

// FrameSize is a width/height pair in pixels.
type FrameSize struct {
	Width  int
	Height int
}

// IsZero reports whether either dimension is missing.
func (s FrameSize) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Origin records which resolution strategy produced a scene.
type Origin string

const (
	OriginProvidedClip         Origin = "provided_clip"
	OriginRenderedFromImage    Origin = "rendered_from_image"
	OriginDownloadedFallback   Origin = "downloaded_fallback"
	OriginCachedReuse          Origin = "cached_reuse"
	OriginSyntheticPlaceholder Origin = "synthetic_placeholder"
)

// ResolvedScene is a rendered clip bound to a fixed duration.
type ResolvedScene struct {
	SourceOrdinal int
	Path          string
	Duration      float64
	FrameSize     FrameSize
	IsPlaceholder bool
	Origin        Origin
}

// Clip is a rendered bookend segment.
type Clip struct {
	Path     string
	Duration float64
}

// Timeline is the ordered clip list handed to the sequencer.
// Main always holds exactly the requested scene count.
type Timeline struct {
	Intro *Clip
	Main  []ResolvedScene
	Outro *Clip
}

// MainDuration sums the scene durations.
func (t Timeline) MainDuration() float64 {
	var total float64
	for _, s := range t.Main {
		total += s.Duration
	}
	return total
}

// Duration is the nominal length of the full timeline.
func (t Timeline) Duration() float64 {
	total := t.MainDuration()
	if t.Intro != nil {
		total += t.Intro.Duration
	}
	if t.Outro != nil {
		total += t.Outro.Duration
	}
	return total
}
