package video

import (
	"strings"
	"testing"
)

func argIndex(args []string, want string) int {
	for i, a := range args {
		if a == want {
			return i
		}
	}
	return -1
}

func argAfter(args []string, flag string) string {
	i := argIndex(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func TestEditArgsStillImage(t *testing.T) {
	args, err := editArgs(Edit{
		Kind:     InputImage,
		Input:    "/tmp/a.png",
		Output:   "/tmp/a.mp4",
		Size:     FrameSize{1080, 1080},
		Duration: 3,
		FPS:      30,
	})
	if err != nil {
		t.Fatalf("editArgs: %v", err)
	}

	if argAfter(args, "-loop") != "1" {
		t.Errorf("still image should loop the input: %v", args)
	}
	if argAfter(args, "-t") != "3.000" {
		t.Errorf("-t = %q, want 3.000", argAfter(args, "-t"))
	}
	if argAfter(args, "-r") != "30" {
		t.Errorf("-r = %q, want 30", argAfter(args, "-r"))
	}
	if argAfter(args, "-c:v") != "libx264" {
		t.Errorf("-c:v = %q, want libx264", argAfter(args, "-c:v"))
	}
	vf := argAfter(args, "-vf")
	if !strings.Contains(vf, "force_original_aspect_ratio=increase,crop=1080:1080") {
		t.Errorf("expected cover-fill resize, got %q", vf)
	}
	if !strings.HasSuffix(vf, "setsar=1,fps=30,format=yuv420p") {
		t.Errorf("filter should end with the normalizing tail, got %q", vf)
	}
	if args[len(args)-1] != "/tmp/a.mp4" {
		t.Errorf("output should be last, got %q", args[len(args)-1])
	}
}

func TestEditArgsPulse(t *testing.T) {
	args, err := editArgs(Edit{
		Kind:     InputImage,
		Input:    "a.jpg",
		Output:   "a.mp4",
		Size:     FrameSize{1080, 1080},
		Duration: 2,
		FPS:      30,
		Pulse:    true,
	})
	if err != nil {
		t.Fatalf("editArgs: %v", err)
	}

	if argIndex(args, "-loop") >= 0 {
		t.Error("zoompan reads a single frame; -loop must not be set")
	}
	vf := argAfter(args, "-vf")
	if !strings.Contains(vf, "zoompan=z='1.050+0.030*sin(on*0.120)'") {
		t.Errorf("missing pulse zoom expression: %q", vf)
	}
	if !strings.Contains(vf, ":d=90:s=1080x1080:fps=30") {
		t.Errorf("unexpected zoompan frame count or size: %q", vf)
	}
}

func TestEditArgsLoopedVideo(t *testing.T) {
	args, err := editArgs(Edit{
		Kind:     InputVideo,
		Input:    "loop.gif",
		Output:   "out.mp4",
		Size:     FrameSize{1080, 1080},
		Duration: 4.5,
		Loop:     true,
	})
	if err != nil {
		t.Fatalf("editArgs: %v", err)
	}

	loop, in := argIndex(args, "-stream_loop"), argIndex(args, "-i")
	if loop < 0 || loop > in {
		t.Errorf("-stream_loop must precede -i: %v", args)
	}
	if argAfter(args, "-stream_loop") != "-1" {
		t.Errorf("expected infinite loop, got %q", argAfter(args, "-stream_loop"))
	}
	if argAfter(args, "-t") != "4.500" {
		t.Errorf("-t = %q, want 4.500", argAfter(args, "-t"))
	}
	if argAfter(args, "-r") != "30" {
		t.Errorf("default fps should be 30, got %q", argAfter(args, "-r"))
	}
}

func TestEditArgsColorAndCrop(t *testing.T) {
	args, err := editArgs(Edit{
		Kind:     InputColor,
		Output:   "p.mp4",
		Size:     FrameSize{1080, 1080},
		Duration: 1,
		FPS:      30,
	})
	if err != nil {
		t.Fatalf("editArgs: %v", err)
	}
	if argAfter(args, "-f") != "lavfi" || argAfter(args, "-i") != "color=c=black:s=1080x1080:r=30" {
		t.Errorf("unexpected color source: %v", args)
	}

	args, err = editArgs(Edit{
		Kind:     InputVideo,
		Input:    "s.mp4",
		Output:   "kb.mp4",
		Size:     FrameSize{1080, 1080},
		Duration: 3,
		FPS:      30,
		Scale:    FrameSize{1296, 1296},
		Crop:     &Rect{X: 108, Y: 108, Width: 1080, Height: 1080},
	})
	if err != nil {
		t.Fatalf("editArgs: %v", err)
	}
	if vf := argAfter(args, "-vf"); !strings.HasPrefix(vf, "scale=1296:1296,crop=1080:1080:108:108,") {
		t.Errorf("unexpected crop chain: %q", vf)
	}
}

func TestEditArgsValidation(t *testing.T) {
	bad := []Edit{
		{Kind: InputImage, Input: "a", Size: FrameSize{10, 10}, Duration: 1},
		{Kind: InputImage, Input: "a", Output: "b", Duration: 1},
		{Kind: InputImage, Input: "a", Output: "b", Size: FrameSize{10, 10}},
		{Kind: InputKind(9), Input: "a", Output: "b", Size: FrameSize{10, 10}, Duration: 1},
	}
	for i, e := range bad {
		if _, err := editArgs(e); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestMuxArgs(t *testing.T) {
	args := muxArgs(Mux{Video: "v.mp4", Audio: "a.mp3", Output: "out.partial"})

	if argIndex(args, "-t") >= 0 {
		t.Errorf("untruncated mux should not set -t: %v", args)
	}
	if argAfter(args, "-c:a") != "aac" || argAfter(args, "-c:v") != "libx264" {
		t.Errorf("unexpected codecs: %v", args)
	}
	if argAfter(args, "-f") != "mp4" {
		t.Errorf("partial output needs an explicit container: %v", args)
	}
	if argIndex(args, "-shortest") >= 0 {
		t.Error("-shortest would cut video to audio length")
	}

	args = muxArgs(Mux{Video: "v.mp4", Audio: "a.mp3", Output: "out.partial", AudioLimit: 9.25})
	tIdx := argIndex(args, "-t")
	audioIdx := -1
	for i := range args {
		if args[i] == "-i" && i+1 < len(args) && args[i+1] == "a.mp3" {
			audioIdx = i
		}
	}
	if tIdx < 0 || audioIdx < 0 || tIdx > audioIdx {
		t.Fatalf("-t must be an input option on the audio: %v", args)
	}
	if args[tIdx+1] != "9.250" {
		t.Errorf("-t = %q, want 9.250", args[tIdx+1])
	}
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{"programs":[],"streams":[{},{"width":1080,"height":1920}],"format":{"duration":"14.021000"}}`)
	m, err := parseProbe(out)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if m.Duration != 14.021 {
		t.Errorf("Duration = %v, want 14.021", m.Duration)
	}
	if m.Size != (FrameSize{1080, 1920}) {
		t.Errorf("Size = %+v", m.Size)
	}

	if _, err := parseProbe([]byte(`{"format":{"duration":"N/A"}}`)); err == nil {
		t.Error("expected error for unparseable duration")
	}
	if _, err := parseProbe([]byte("not json")); err == nil {
		t.Error("expected error for invalid output")
	}
}

func TestConcatList(t *testing.T) {
	got := concatList([]string{"/tmp/a.mp4", "/tmp/it's.mp4"})
	want := "file '/tmp/a.mp4'\nfile '/tmp/it'\\''s.mp4'\n"
	if got != want {
		t.Errorf("concatList = %q, want %q", got, want)
	}
}
