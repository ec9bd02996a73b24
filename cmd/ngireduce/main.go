package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ngireduce/internal/models"
	"ngireduce/pkg/config"
	"ngireduce/pkg/export"
	"ngireduce/pkg/loader"
	"ngireduce/pkg/pipeline"
	"ngireduce/pkg/roi"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// reduce flags, applied on top of the config file
	sampleDir     string
	obDir         string
	dfDir         string
	outputDir     string
	binSize       int
	numberPeriods float64
	normROIFlag   string
	cropROIFlag   string
	oscROIFlag    string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ngireduce",
	Short: "Grating-interferometry stack reduction",
	Long: `ngireduce reduces stacks of grating-interferometry images (sample,
open-beam, dark-field) acquired at stepped grating positions into four
quantitative maps: transmission, differential phase contrast, dark field
and visibility.

The reduction follows Marathe et al. (2014): ordered stateful corrections
(dark-field subtraction, per-frame flat-field normalization, crop, binning)
followed by a per-pixel harmonic least-squares fit of each pixel's
oscillation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// reduceCmd runs the full reduction chain on the configured stacks
var reduceCmd = &cobra.Command{
	Use:   "reduce",
	Short: "Run the correction pipeline and derive the interferometry maps",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReduce(cmd)
	},
}

// initConfigCmd writes a default configuration file
var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.CreateDefaultConfigFile(configPath); err != nil {
			return err
		}
		logger.Info("wrote default configuration", zap.String("path", configPath))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "ngireduce.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	reduceCmd.Flags().StringVar(&sampleDir, "sample", "", "Directory containing the stepped sample exposures")
	reduceCmd.Flags().StringVar(&obDir, "ob", "", "Directory containing the stepped open-beam exposures")
	reduceCmd.Flags().StringVar(&dfDir, "df", "", "Directory containing dark-field frames (optional)")
	reduceCmd.Flags().StringVar(&outputDir, "output", "", "Directory for the derived maps")
	reduceCmd.Flags().IntVar(&binSize, "bin", 0, "Bin size for block-mean rebinning (1 disables)")
	reduceCmd.Flags().Float64Var(&numberPeriods, "periods", 0, "Number of grating periods stepped over the acquisition")
	reduceCmd.Flags().StringVar(&normROIFlag, "norm-roi", "", "Normalization ROI as x0,y0,x1,y1 (inclusive)")
	reduceCmd.Flags().StringVar(&cropROIFlag, "crop-roi", "", "Crop ROI as x0,y0,x1,y1 (inclusive)")
	reduceCmd.Flags().StringVar(&oscROIFlag, "osc-roi", "", "Oscillation ROI as x0,y0,x1,y1 (inclusive)")

	rootCmd.AddCommand(reduceCmd)
	rootCmd.AddCommand(initConfigCmd)
}

// newLogger builds the production logger, at debug level when requested.
func newLogger(debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReduce(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return err
	}
	// The config file may enable verbose output after the pre-run logger
	// was built from the flag alone.
	if cfg.Output.Verbose && !verbose {
		newLog, err := newLogger(true)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		_ = logger.Sync()
		logger = newLog
	}
	if cfg.Data.SampleDir == "" || cfg.Data.OpenBeamDir == "" {
		return fmt.Errorf("sample and open-beam directories are required (flags or config file)")
	}

	gi := pipeline.New(
		pipeline.WithLoader(loader.NewFileLoader()),
		pipeline.WithLogger(logger),
	)

	start := time.Now()
	if err := gi.Load("", cfg.Data.SampleDir, models.RoleSample); err != nil {
		return fmt.Errorf("loading sample stack: %w", err)
	}
	if err := gi.Load("", cfg.Data.OpenBeamDir, models.RoleOpenBeam); err != nil {
		return fmt.Errorf("loading open-beam stack: %w", err)
	}
	if cfg.Data.DarkFieldDir != "" {
		if err := gi.Load("", cfg.Data.DarkFieldDir, models.RoleDarkField); err != nil {
			return fmt.Errorf("loading dark-field stack: %w", err)
		}
	}
	logger.Info("stacks loaded",
		zap.Int("sampleFrames", gi.Stack(models.RoleSample).Len()),
		zap.Int("obFrames", gi.Stack(models.RoleOpenBeam).Len()),
		zap.Int("dfFrames", gi.Stack(models.RoleDarkField).Len()))

	if err := gi.DFCorrection(false); err != nil {
		return err
	}

	normROI, err := optionalROI(cfg.Processing.NormalizationROI)
	if err != nil {
		return err
	}
	if err := gi.Normalization(normROI, false); err != nil {
		return err
	}

	if cfg.Processing.CropROI != nil {
		cropROI, err := cfg.Processing.CropROI.ToROI()
		if err != nil {
			return err
		}
		if err := gi.Crop(cropROI, false); err != nil {
			return err
		}
	}

	if cfg.Processing.BinSize > 1 {
		if err := gi.Binning(cfg.Processing.BinSize, false); err != nil {
			return err
		}
	}

	oscROI, err := optionalROI(cfg.Processing.OscillationROI)
	if err != nil {
		return err
	}
	if err := gi.Oscillation(oscROI, false); err != nil {
		return err
	}

	maps, err := gi.CreateInterferometryImages(cfg.Processing.NumberPeriods)
	if err != nil {
		return err
	}

	writer, err := export.NewWriter(cfg.Output.Dir)
	if err != nil {
		return err
	}
	if err := writer.SaveMaps(maps); err != nil {
		return err
	}
	if cfg.Output.SaveOscillation {
		if _, err := writer.SaveOscillationCSV("oscillation",
			gi.OscillationValues(models.RoleSample),
			gi.OscillationValues(models.RoleOpenBeam)); err != nil {
			return err
		}
	}

	logger.Info("reduction complete",
		zap.String("outputDir", cfg.Output.Dir),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// applyFlagOverrides folds explicitly set command-line flags into the
// loaded configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	if sampleDir != "" {
		cfg.Data.SampleDir = sampleDir
	}
	if obDir != "" {
		cfg.Data.OpenBeamDir = obDir
	}
	if dfDir != "" {
		cfg.Data.DarkFieldDir = dfDir
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if cmd.Flags().Changed("bin") {
		cfg.Processing.BinSize = binSize
	}
	if cmd.Flags().Changed("periods") {
		cfg.Processing.NumberPeriods = numberPeriods
	}
	if verbose {
		cfg.Output.Verbose = true
	}

	var err error
	if normROIFlag != "" {
		if cfg.Processing.NormalizationROI, err = parseROIFlag(normROIFlag); err != nil {
			return err
		}
	}
	if cropROIFlag != "" {
		if cfg.Processing.CropROI, err = parseROIFlag(cropROIFlag); err != nil {
			return err
		}
	}
	if oscROIFlag != "" {
		if cfg.Processing.OscillationROI, err = parseROIFlag(oscROIFlag); err != nil {
			return err
		}
	}
	return nil
}

// parseROIFlag parses "x0,y0,x1,y1" into a config rectangle.
func parseROIFlag(s string) (*config.ROIConfig, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("roi must be x0,y0,x1,y1, got %q", s)
	}
	vals := make([]int, 4)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("roi component %q is not an integer", part)
		}
		vals[i] = v
	}
	return &config.ROIConfig{X0: vals[0], Y0: vals[1], X1: vals[2], Y1: vals[3]}, nil
}

// optionalROI converts an optional config rectangle to the pipeline's
// optional ROI pointer.
func optionalROI(rc *config.ROIConfig) (*roi.ROI, error) {
	if rc == nil {
		return nil, nil
	}
	r, err := rc.ToROI()
	if err != nil {
		return nil, err
	}
	return &r, nil
}
