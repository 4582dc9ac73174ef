package video

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"
	"testing"
)

// fakeToolkit records every call and writes a stub file for each output so
// cleanup can be checked on disk. Durations flow through a path->Media map.
type fakeToolkit struct {
	mu sync.Mutex

	narration float64
	checkErr  error
	muxErr    error
	concatErr error

	// failInputs makes Render fail for any edit whose input contains the key.
	failInputs []string
	// failPulse makes every zoom-pulse render fail.
	failPulse bool
	// failKenBurns makes every crop render fail.
	failKenBurns bool
	// extra adds seconds to the output of a concat whose output contains the key.
	extra map[string]float64

	media  map[string]Media
	edits  []Edit
	concat [][]string
	muxes  []Mux
}

func newFakeToolkit(narration float64) *fakeToolkit {
	return &fakeToolkit{
		narration: narration,
		extra:     map[string]float64{},
		media:     map[string]Media{},
	}
}

func (f *fakeToolkit) Check(ctx context.Context) error {
	return f.checkErr
}

func (f *fakeToolkit) Probe(ctx context.Context, path string) (Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if strings.HasSuffix(path, "narration.audio") {
		if f.narration <= 0 {
			return Media{}, errors.New("invalid data found when processing input")
		}
		return Media{Duration: f.narration}, nil
	}
	m, ok := f.media[path]
	if !ok {
		return Media{}, errors.New("no such file")
	}
	return m, nil
}

func (f *fakeToolkit) Render(ctx context.Context, e Edit) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.edits = append(f.edits, e)

	for _, key := range f.failInputs {
		if strings.Contains(e.Input, key) {
			return errors.New("decode failed")
		}
	}
	if f.failPulse && e.Pulse {
		return errors.New("zoompan failed")
	}
	if f.failKenBurns && e.Crop != nil {
		return errors.New("crop failed")
	}

	if err := os.WriteFile(e.Output, []byte("clip"), 0644); err != nil {
		return err
	}
	f.media[e.Output] = Media{Duration: e.Duration, Size: e.Size}
	return nil
}

func (f *fakeToolkit) Concatenate(ctx context.Context, inputs []string, listPath, output string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.concat = append(f.concat, inputs)
	if f.concatErr != nil {
		return f.concatErr
	}
	if err := os.WriteFile(listPath, []byte(concatList(inputs)), 0644); err != nil {
		return err
	}

	var total float64
	var size FrameSize
	for _, in := range inputs {
		m := f.media[in]
		total += m.Duration
		if size.IsZero() {
			size = m.Size
		}
	}
	for key, extra := range f.extra {
		if strings.Contains(output, key) {
			total += extra
		}
	}

	if err := os.WriteFile(output, []byte("concat"), 0644); err != nil {
		return err
	}
	f.media[output] = Media{Duration: total, Size: size}
	return nil
}

func (f *fakeToolkit) AttachAudio(ctx context.Context, m Mux) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.muxes = append(f.muxes, m)
	if f.muxErr != nil {
		// Leave a half-written file behind, as a crashed encoder would.
		os.WriteFile(m.Output, []byte("partial"), 0644)
		return f.muxErr
	}
	return os.WriteFile(m.Output, []byte("final"), 0644)
}

func (f *fakeToolkit) editsWhere(match func(Edit) bool) []Edit {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Edit
	for _, e := range f.edits {
		if match(e) {
			out = append(out, e)
		}
	}
	return out
}

// fakeFetcher serves canned bytes per locator and counts calls.
type fakeFetcher struct {
	mu    sync.Mutex
	data  map[string][]byte
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{data: map[string][]byte{}, calls: map[string]int{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[locator]++
	data, ok := f.data[locator]
	if !ok {
		return nil, errResourceUnavailable
	}
	return data, nil
}

func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{200, 16, 46, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
