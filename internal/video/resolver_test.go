package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestResolver(t *testing.T, tk Toolkit, fetcher Fetcher) *resolver {
	t.Helper()

	scratch, err := NewScratch(t.TempDir(), "res")
	if err != nil {
		t.Fatalf("NewScratch: %v", err)
	}
	return newResolver(tk, fetcher, scratch, FrameSize{1080, 1080}, 30, zerolog.Nop())
}

func origins(scenes []ResolvedScene) []Origin {
	out := make([]Origin, len(scenes))
	for i, s := range scenes {
		out[i] = s.Origin
	}
	return out
}

func TestResolveSceneCountInvariant(t *testing.T) {
	png := testPNG(t)
	clipDir := t.TempDir()
	clip := filepath.Join(clipDir, "loop.gif")
	os.WriteFile(clip, []byte("gif"), 0644)

	tests := []struct {
		name   string
		images []string
		clips  []string
		count  int
	}{
		{"all reachable", []string{"ok0", "ok1", "ok2"}, nil, 3},
		{"all unreachable", []string{"bad0", "bad1", "bad2"}, nil, 3},
		{"mixed", []string{"bad0", "ok1", "bad2", "ok3"}, nil, 4},
		{"fewer sources than scenes", []string{"ok0"}, nil, 5},
		{"clips and images", []string{"ok0", "ok1"}, []string{clip, clip + ".missing"}, 3},
		{"more sources than scenes", []string{"ok0", "ok1", "ok2"}, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newFakeFetcher()
			for _, loc := range []string{"ok0", "ok1", "ok2", "ok3"} {
				fetcher.data[loc] = png
			}
			r := newTestResolver(t, newFakeToolkit(10), fetcher)

			scenes, err := r.Resolve(context.Background(), BuildSources(tt.images, tt.clips), tt.count, 1.75)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if len(scenes) != tt.count {
				t.Fatalf("got %d scenes, want %d", len(scenes), tt.count)
			}
			for i, s := range scenes {
				if s.SourceOrdinal != i {
					t.Errorf("scene %d has ordinal %d", i, s.SourceOrdinal)
				}
				if s.Duration != 1.75 {
					t.Errorf("scene %d duration = %v, want 1.75", i, s.Duration)
				}
				if s.FrameSize != (FrameSize{1080, 1080}) {
					t.Errorf("scene %d size = %v", i, s.FrameSize)
				}
				if s.Path == "" {
					t.Errorf("scene %d has no path", i)
				}
			}
		})
	}
}

func TestResolveStrategyOrder(t *testing.T) {
	png := testPNG(t)
	clip := filepath.Join(t.TempDir(), "loop.mp4")
	os.WriteFile(clip, []byte("mp4"), 0644)

	fetcher := newFakeFetcher()
	fetcher.data["ok1"] = png
	fetcher.data["ok3"] = png

	r := newTestResolver(t, newFakeToolkit(10), fetcher)
	scenes, err := r.Resolve(context.Background(),
		BuildSources([]string{"", "ok1", "bad2", "ok3"}, []string{clip}),
		5, 2.0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []Origin{
		OriginProvidedClip,
		OriginRenderedFromImage,
		OriginCachedReuse,
		OriginRenderedFromImage,
		OriginSyntheticPlaceholder,
	}
	got := origins(scenes)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("scene %d origin = %s, want %s", i, got[i], want[i])
		}
	}
	if !scenes[4].IsPlaceholder || scenes[2].IsPlaceholder {
		t.Error("IsPlaceholder flags wrong")
	}
}

func TestResolvePlaceholderWithoutCache(t *testing.T) {
	png := testPNG(t)
	fetcher := newFakeFetcher()
	fetcher.data["ok1"] = png
	fetcher.data["ok2"] = png

	r := newTestResolver(t, newFakeToolkit(10), fetcher)
	scenes, err := r.Resolve(context.Background(), BuildSources([]string{"unreachable", "ok1", "ok2"}, nil), 3, 3.0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	bad, good := scenes[0], scenes[1]
	if !bad.IsPlaceholder || bad.Origin != OriginSyntheticPlaceholder {
		t.Fatalf("scene 0 = %+v, want placeholder", bad)
	}
	if bad.Duration != good.Duration || bad.FrameSize != good.FrameSize {
		t.Errorf("placeholder %v/%v does not match neighbor %v/%v", bad.Duration, bad.FrameSize, good.Duration, good.FrameSize)
	}
	if fetcher.calls["unreachable"] != 1 {
		t.Errorf("unreachable fetched %d times, want 1 (retries live inside the fetcher)", fetcher.calls["unreachable"])
	}
}

func TestResolveCacheOnlyForFailedDownloads(t *testing.T) {
	png := testPNG(t)
	fetcher := newFakeFetcher()
	fetcher.data["ok0"] = png
	fetcher.data["ok1"] = png
	tk := newFakeToolkit(10)
	tk.failInputs = []string{"scene01_raw"}

	r := newTestResolver(t, tk, fetcher)
	scenes, err := r.Resolve(context.Background(), BuildSources([]string{"ok0", "ok1", "bad2"}, nil), 3, 2.0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []Origin{OriginRenderedFromImage, OriginSyntheticPlaceholder, OriginCachedReuse}
	for i, o := range origins(scenes) {
		if o != want[i] {
			t.Errorf("scene %d origin = %s, want %s", i, o, want[i])
		}
	}
	if cached := tk.editsWhere(func(e Edit) bool { return filepath.Base(e.Output) == "res_scene01_cached.mp4" }); len(cached) != 0 {
		t.Errorf("scene 1 should not try the cache: %+v", cached)
	}
}

func TestResolveStaticFallback(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.data["ok0"] = testPNG(t)
	tk := newFakeToolkit(10)
	tk.failPulse = true

	r := newTestResolver(t, tk, fetcher)
	scenes, err := r.Resolve(context.Background(), BuildSources([]string{"ok0"}, nil), 1, 4.0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if scenes[0].Origin != OriginDownloadedFallback {
		t.Errorf("origin = %s, want %s", scenes[0].Origin, OriginDownloadedFallback)
	}
	if fetcher.calls["ok0"] != 1 {
		t.Errorf("image fetched %d times, want 1", fetcher.calls["ok0"])
	}
}

func TestResolveRejectsNonImagePayload(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.data["html"] = []byte("<!doctype html><p>quota exceeded</p>")

	r := newTestResolver(t, newFakeToolkit(10), fetcher)
	scenes, err := r.Resolve(context.Background(), BuildSources([]string{"html"}, nil), 1, 2.0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !scenes[0].IsPlaceholder {
		t.Errorf("html payload should degrade to placeholder, got %s", scenes[0].Origin)
	}
}

func TestResolveClipLooping(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "short.gif")
	long := filepath.Join(dir, "long.mp4")
	os.WriteFile(short, []byte("gif"), 0644)
	os.WriteFile(long, []byte("mp4"), 0644)

	tk := newFakeToolkit(10)
	tk.media[short] = Media{Duration: 0.8}
	tk.media[long] = Media{Duration: 6.0}

	r := newTestResolver(t, tk, newFakeFetcher())
	if _, err := r.Resolve(context.Background(), BuildSources(nil, []string{short, long}), 2, 2.5); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	edits := tk.editsWhere(func(e Edit) bool { return e.Kind == InputVideo })
	if len(edits) != 2 {
		t.Fatalf("expected 2 clip edits, got %d", len(edits))
	}
	if !edits[0].Loop || edits[0].Duration != 2.5 {
		t.Errorf("short clip should loop to 2.5s: %+v", edits[0])
	}
	if edits[1].Loop || edits[1].Duration != 2.5 {
		t.Errorf("long clip should be clipped to 2.5s without looping: %+v", edits[1])
	}
}

func TestResolvePlaceholderFailureIsFatal(t *testing.T) {
	tk := newFakeToolkit(10)
	tk.failInputs = []string{"black"}

	r := newTestResolver(t, tk, newFakeFetcher())
	_, err := r.Resolve(context.Background(), BuildSources([]string{"bad"}, nil), 1, 2.0)
	if !errors.Is(err, ErrEnvironmentUnavailable) {
		t.Errorf("expected ErrEnvironmentUnavailable, got %v", err)
	}
}
