package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/thumbnailer/internal/cli"
	"github.com/fpang/thumbnailer/internal/config"
	"github.com/fpang/thumbnailer/internal/fetch"
	"github.com/fpang/thumbnailer/internal/lambdaboot"
	"github.com/fpang/thumbnailer/internal/logging"
	"github.com/fpang/thumbnailer/internal/thumbnail"
)

// CLI flags
var (
	sizeFlag       int
	formatFlag     string
	outputFlag     string
	ratioFlag      string
	onNoShrinkFlag string
	qualityFlag    int
	kernelFlag     string
	autoOrientFlag bool
	pickFlag       bool
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "thumbnail",
	Short: "Create aspect-ratio-preserving thumbnails",
	Long: `Thumbnail resizes an image so that its constrained axis (the longer side by
default) equals the requested size, keeping the aspect ratio, and writes it in
the chosen format.

Examples:
  thumbnail create photo.jpg -s 480 -f png
  thumbnail create https://example.com/cat.webp -s 240 -o cat.jpg
  thumbnail create s3://my-bucket/raw/IMG_0001.jpg -s 400 -o -  > thumb.jpg
  cat photo.jpg | thumbnail create - -s 200 -f gif -o photo.gif
  thumbnail create --pick        # choose a file in a native dialog
  thumbnail inspect photo.jpg
  thumbnail formats`,
	SilenceUsage: true,
}

var createCmd = &cobra.Command{
	Use:   "create [SOURCE]",
	Short: "Create a thumbnail from a file, URL or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCreate,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect SOURCE",
	Short: "Show dimensions, orientation and EXIF metadata of an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List output formats",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cli.PrintFormats(cmd.OutOrStdout())
	},
}

func init() {
	f := createCmd.Flags()
	f.IntVarP(&sizeFlag, "size", "s", config.DefaultSize, "Target size of the constrained axis in pixels")
	f.StringVarP(&formatFlag, "format", "f", "jpeg", "Output format (jpeg, png, gif, bmp, tiff)")
	f.StringVarP(&outputFlag, "output", "o", "", "Output path, or - for stdout (default <name>_thumb.<ext>)")
	f.StringVar(&ratioFlag, "ratio", "", "Force the constrained axis: landscape (width) or portrait (height)")
	f.StringVar(&onNoShrinkFlag, "on-no-shrink", "", "When the image is already small enough: pass-through or reject")
	f.IntVar(&qualityFlag, "quality", thumbnail.DefaultJPEGQuality, "JPEG quality (1-100)")
	f.StringVar(&kernelFlag, "kernel", "catmull-rom", "Resampling kernel (catmull-rom, bilinear, approx-bilinear, nearest)")
	f.BoolVar(&autoOrientFlag, "auto-orient", true, "Apply the EXIF orientation before resizing")
	f.BoolVar(&pickFlag, "pick", false, "Pick the source image in a native file dialog")

	rootCmd.AddCommand(createCmd, inspectCmd, formatsCmd)
}

func main() {
	logging.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// runCreate is the execution logic for "thumbnail create".
func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	arg, err := sourceArg(args)
	if err != nil {
		return err
	}

	opts, size, format, err := createOptions(cmd, cfg)
	if err != nil {
		return err
	}
	opts.Fetcher = newFetcher(cfg, arg)
	creator := thumbnail.New(opts)

	src := cli.ResolveSource(arg, os.Stdin, opts.Fetcher)
	res, err := creator.Create(cmd.Context(), src, size, format)
	if err != nil {
		log.Error().Err(err).Str("source", src.Describe()).Msg("Thumbnail failed")
		return err
	}

	out := outputFlag
	if out == "" {
		out = cli.DefaultOutputPath(arg, format)
	}
	if out == "-" {
		_, err = res.WriteTo(cmd.OutOrStdout())
		return err
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}

	log.Info().
		Str("output", out).
		Str("source_dims", res.Source.String()).
		Str("dims", res.Output.String()).
		Bool("pass_through", res.PassThrough).
		Str("size", cli.FormatBytes(len(res.Data))).
		Msg("Thumbnail written")
	return nil
}

// runInspect is the execution logic for "thumbnail inspect".
func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts := cfg.ThumbnailOptions(newFetcher(cfg, args[0]))
	src := cli.ResolveSource(args[0], os.Stdin, opts.Fetcher)

	info, err := thumbnail.New(opts).Inspect(cmd.Context(), src)
	if err != nil {
		return err
	}
	cli.PrintInfo(cmd.OutOrStdout(), args[0], info)
	return nil
}

// sourceArg returns the SOURCE argument, falling back to the file picker or
// an interactive prompt.
func sourceArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if pickFlag {
		return cli.PickImageFile()
	}
	return cli.PromptForSource(os.Stdin, os.Stderr)
}

// createOptions layers explicitly set flags over the environment configuration.
func createOptions(cmd *cobra.Command, cfg config.Config) (thumbnail.Options, int, thumbnail.Format, error) {
	flags := cmd.Flags()
	size := cfg.DefaultSize
	format := cfg.DefaultFormat

	var err error
	if flags.Changed("size") {
		size = sizeFlag
	}
	if flags.Changed("format") {
		if format, err = thumbnail.ParseFormat(formatFlag); err != nil {
			return thumbnail.Options{}, 0, 0, err
		}
	}
	if flags.Changed("ratio") {
		if cfg.Ratio, err = thumbnail.ParseRatio(ratioFlag); err != nil {
			return thumbnail.Options{}, 0, 0, err
		}
	}
	if flags.Changed("on-no-shrink") {
		if cfg.OnNoShrink, err = thumbnail.ParseNoShrinkPolicy(onNoShrinkFlag); err != nil {
			return thumbnail.Options{}, 0, 0, err
		}
	}
	if flags.Changed("quality") {
		if qualityFlag < 1 || qualityFlag > 100 {
			return thumbnail.Options{}, 0, 0, fmt.Errorf("%w: quality must be between 1 and 100", thumbnail.ErrInvalidArgument)
		}
		cfg.JPEGQuality = qualityFlag
	}
	if flags.Changed("auto-orient") {
		cfg.AutoOrient = autoOrientFlag
	}

	opts := cfg.ThumbnailOptions(nil)
	if opts.Kernel, err = thumbnail.ParseKernel(kernelFlag); err != nil {
		return thumbnail.Options{}, 0, 0, err
	}
	return opts, size, format, nil
}

// newFetcher builds the URL fetcher. AWS is only initialised for s3:// sources
// so local runs need no credentials.
func newFetcher(cfg config.Config, arg string) fetch.Fetcher {
	var s3Client fetch.S3GetObjectAPI
	if bucket, _, err := fetch.ParseS3URL(arg); err == nil {
		s3Client = lambdaboot.InitS3(lambdaboot.InitAWS(), bucket).Client
	}
	return lambdaboot.NewFetcher(cfg, s3Client)
}
