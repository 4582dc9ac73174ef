package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bobarin/trendcast/internal/config"
	"github.com/bobarin/trendcast/internal/video"
	"github.com/spf13/cobra"
)

type renderFlags struct {
	images  []string
	clips   []string
	audio   string
	slogan  string
	brand   string
	scenes  int
	out     string
	width   int
	height  int
	fps     int
	jsonOut bool
}

func newRootCommand() *cobra.Command {
	defaults := config.LoadRender()
	flags := renderFlags{
		brand:  defaults.BrandName,
		width:  defaults.FrameWidth,
		height: defaults.FrameHeight,
		fps:    defaults.FPS,
	}

	cmd := &cobra.Command{
		Use:           "render",
		Short:         "Assemble a campaign video from scene images and narration",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			return runRender(cmd, defaults, flags)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&flags.images, "image", nil, "Scene image path or URL (repeatable, in scene order)")
	f.StringArrayVar(&flags.clips, "clip", nil, "Scene clip local path (repeatable, preferred over the image at the same index)")
	f.StringVar(&flags.audio, "audio", "", "Narration audio file")
	f.StringVar(&flags.slogan, "slogan", "", "Outro slogan")
	f.StringVar(&flags.brand, "brand", flags.brand, "Intro brand name")
	f.IntVar(&flags.scenes, "scenes", 0, "Scene count (default: number of sources)")
	f.StringVarP(&flags.out, "out", "o", "", "Output file (default: <OUTPUT_DIR>/campaign_<id>.mp4)")
	f.IntVar(&flags.width, "width", flags.width, "Frame width")
	f.IntVar(&flags.height, "height", flags.height, "Frame height")
	f.IntVar(&flags.fps, "fps", flags.fps, "Frames per second")
	f.BoolVar(&flags.jsonOut, "json", false, "Print the render summary as JSON")
	_ = cmd.MarkFlagRequired("audio")

	return cmd
}

func (f renderFlags) validate() error {
	if len(f.images) == 0 && len(f.clips) == 0 {
		return errors.New("at least one --image or --clip is required")
	}
	for _, c := range f.clips {
		if strings.Contains(c, "://") {
			return fmt.Errorf("--clip %q must be a local path", c)
		}
	}
	if f.scenes < 0 {
		return errors.New("--scenes must not be negative")
	}
	if f.width <= 0 || f.height <= 0 || f.width%2 != 0 || f.height%2 != 0 {
		return fmt.Errorf("frame size %dx%d must be positive and even", f.width, f.height)
	}
	return nil
}

func runRender(cmd *cobra.Command, defaults config.Render, f renderFlags) error {
	narration, err := os.ReadFile(f.audio)
	if err != nil {
		return fmt.Errorf("read narration: %w", err)
	}

	renderer, err := video.NewRenderer(
		video.NewFFmpeg(defaults.FFmpegPath, defaults.FFprobePath),
		video.NewHTTPFetcher(),
		video.Options{
			TempDir:   defaults.TempDir,
			OutputDir: defaults.OutputDir,
			Size:      video.FrameSize{Width: f.width, Height: f.height},
			FPS:       f.fps,
		},
	)
	if err != nil {
		return err
	}

	res, err := renderer.Render(cmd.Context(), video.Job{
		ImageLocators: f.images,
		ClipLocators:  f.clips,
		SceneCount:    f.scenes,
		Narration:     narration,
		BrandName:     f.brand,
		Slogan:        f.slogan,
		OutputPath:    f.out,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summarize(res))
	}
	fmt.Fprintf(out, "%s (%.2fs, %d scenes, %d placeholders, audio %s)\n",
		res.Path, res.VideoDuration, len(res.Timeline.Main), res.Placeholders(), res.Audio.Action)
	return nil
}

type summary struct {
	Path         string  `json:"path"`
	Duration     float64 `json:"duration"`
	Narration    float64 `json:"narration"`
	PerScene     float64 `json:"per_scene"`
	Scenes       int     `json:"scenes"`
	Placeholders int     `json:"placeholders"`
	Degenerate   bool    `json:"degenerate"`
	Audio        string  `json:"audio"`
}

func summarize(r *video.Result) summary {
	return summary{
		Path:         r.Path,
		Duration:     r.VideoDuration,
		Narration:    r.Plan.NarrationDuration,
		PerScene:     r.Plan.PerSceneDuration,
		Scenes:       len(r.Timeline.Main),
		Placeholders: r.Placeholders(),
		Degenerate:   r.Plan.Degenerate,
		Audio:        string(r.Audio.Action),
	}
}
