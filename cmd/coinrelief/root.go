package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/coinrelief/pkg/base"
	"github.com/chazu/coinrelief/pkg/coin"
	"github.com/chazu/coinrelief/pkg/recipe"
	"github.com/chazu/coinrelief/pkg/relief"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

// envPrefix namespaces environment overrides, e.g. COINRELIEF_RELIEF_DEPTH.
const envPrefix = "COINRELIEF"

// Flags that are not configuration keys.
const (
	flagRecipe   = "recipe"
	flagConfig   = "config"
	flagLogLevel = "log-level"
)

// flagKeys maps each flag bound to viper to its configuration key.
var flagKeys = map[string]string{
	"input":          coin.KeyInput,
	"output":         coin.KeyOutput,
	"diameter":       coin.KeyDiameter,
	"depth":          coin.KeyDepth,
	"rotate-x":       coin.KeyRotationX,
	"rotate-y":       coin.KeyRotationY,
	"rotate-z":       coin.KeyRotationZ,
	"samples":        coin.KeySamples,
	"algorithm":      coin.KeyAlgorithm,
	"margin":         coin.KeyMargin,
	"base-thickness": coin.KeyBaseThickness,
	"segments":       coin.KeySegments,
	"no-base":        coin.KeySkipBase,
	"kernel":         coin.KeyKernel,
	"resolution":     coin.KeyResolution,
	"strict":         coin.KeyStrict,
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(viper.New(), stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	if errors.Is(err, coin.ErrConfiguration) {
		fmt.Fprintln(stderr, cmd.UsageString())
		return exitConfig
	}
	return exitFailed
}

// newRootCmd builds the command. Settings resolve through v; logs go to
// logOut.
func newRootCmd(v *viper.Viper, logOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coinrelief --input MODEL [flags]",
		Short: "Turn a 3D model into a coin bas-relief STL",
		Long: `coinrelief imports a USDA or STL scene, fits its mesh objects to a coin
face, compresses their depth into a shallow relief and joins the relief to
a cylindrical base. The result is written as binary STL.

Settings are taken, highest first, from flags, COINRELIEF_* environment
variables, a --recipe file, a --config file and built-in defaults.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &coin.ConfigError{Field: "args", Message: fmt.Sprintf("unexpected argument %q", args[0])}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd, logOut)
			if err != nil {
				return err
			}
			cfg, err := resolveConfig(cmd, v, log)
			if err != nil {
				return err
			}
			p := &coin.Pipeline{Log: log}
			run, err := p.Execute(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d triangles)\n",
				cfg.Output, run.Result.TriangleCount())
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &coin.ConfigError{Field: "flags", Message: err.Error()}
	})

	f := cmd.Flags()
	f.StringP("input", "i", "", "input scene (.usda or .stl)")
	f.StringP("output", "o", coin.DefaultOutput, "output STL path")
	f.Float64("diameter", relief.DefaultDiameter, "coin diameter in mm")
	f.Float64("depth", relief.DefaultDepth, "relief depth in mm")
	f.Float64("rotate-x", 0, "model rotation about X in degrees")
	f.Float64("rotate-y", 0, "model rotation about Y in degrees")
	f.Float64("rotate-z", 0, "model rotation about Z in degrees")
	f.Int("samples", relief.DefaultSamples, "height-field sample count (reserved)")
	f.String("algorithm", relief.AffineSquash.String(), "relief algorithm: affine, projection or backcut")
	f.Float64("margin", 0, "fraction of the diameter the model is fitted to (0 selects the algorithm default)")
	f.Float64("base-thickness", base.DefaultThickness, "base cylinder thickness in mm")
	f.Int("segments", 0, "base cylinder side count (0 selects the algorithm default)")
	f.Bool("no-base", false, "export the relief without a base")
	f.String("kernel", coin.DefaultKernel, "solid kernel: model3d, sdfx or manifold")
	f.Float64("resolution", coin.DefaultResolution, "voxel size in mm for the model3d and sdfx kernels")
	f.Bool("strict", false, "fail instead of warning on non-manifold boolean operands")
	f.String(flagRecipe, "", "recipe file evaluated for setting overrides")
	f.String(flagConfig, "", "config file (yaml, toml or json)")
	f.String(flagLogLevel, "info", "log level: debug, info, warn or error")

	f.VisitAll(func(fl *pflag.Flag) {
		if key, ok := flagKeys[fl.Name]; ok {
			// Lookup never fails for flags defined above.
			_ = v.BindPFlag(key, fl)
		}
	})
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return cmd
}

func newLogger(cmd *cobra.Command, out io.Writer) (*logrus.Logger, error) {
	name, _ := cmd.Flags().GetString(flagLogLevel)
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return nil, &coin.ConfigError{Field: flagLogLevel, Message: err.Error()}
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return log, nil
}

// resolveConfig loads the config file and recipe into v and reads the
// resulting coin.Config.
func resolveConfig(cmd *cobra.Command, v *viper.Viper, log logrus.FieldLogger) (coin.Config, error) {
	if err := loadSettings(cmd, v, log); err != nil {
		return coin.Config{}, err
	}
	return buildConfig(v)
}

// loadSettings layers the config file and then the recipe under the bound
// flags and environment.
func loadSettings(cmd *cobra.Command, v *viper.Viper, log logrus.FieldLogger) error {
	if path, _ := cmd.Flags().GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return &coin.ConfigError{Field: flagConfig, Message: err.Error()}
		}
		log.WithField("path", path).Debug("config file loaded")
	}
	path, _ := cmd.Flags().GetString(flagRecipe)
	if path == "" {
		return nil
	}
	r, warnings, err := recipe.Load(path)
	if err != nil {
		return &coin.ConfigError{Field: flagRecipe, Message: err.Error()}
	}
	for _, w := range warnings {
		log.WithField("path", path).Warn(w.Message)
	}
	if r.IsEmpty() {
		log.WithField("path", path).Debug("recipe sets nothing")
		return nil
	}
	settings := r.Settings()
	if err := v.MergeConfigMap(settings); err != nil {
		return &coin.ConfigError{Field: flagRecipe, Message: err.Error()}
	}
	log.WithFields(logrus.Fields{"path": path, "settings": len(settings)}).Debug("recipe applied")
	return nil
}

// buildConfig reads every configuration key out of v.
func buildConfig(v *viper.Viper) (coin.Config, error) {
	algo, err := relief.ParseAlgorithm(v.GetString(coin.KeyAlgorithm))
	if err != nil {
		return coin.Config{}, &coin.ConfigError{Field: coin.KeyAlgorithm, Message: err.Error()}
	}
	cfg := coin.DefaultConfig()
	cfg.Input = v.GetString(coin.KeyInput)
	cfg.Output = v.GetString(coin.KeyOutput)
	cfg.Relief = relief.Config{
		Diameter: v.GetFloat64(coin.KeyDiameter),
		Depth:    v.GetFloat64(coin.KeyDepth),
		Rotation: r3.Vec{
			X: v.GetFloat64(coin.KeyRotationX),
			Y: v.GetFloat64(coin.KeyRotationY),
			Z: v.GetFloat64(coin.KeyRotationZ),
		},
		Margin:    v.GetFloat64(coin.KeyMargin),
		Samples:   v.GetInt(coin.KeySamples),
		Algorithm: algo,
	}
	cfg.BaseThickness = v.GetFloat64(coin.KeyBaseThickness)
	cfg.Segments = v.GetInt(coin.KeySegments)
	cfg.SkipBase = v.GetBool(coin.KeySkipBase)
	cfg.Kernel = strings.ToLower(v.GetString(coin.KeyKernel))
	cfg.Resolution = v.GetFloat64(coin.KeyResolution)
	cfg.Strict = v.GetBool(coin.KeyStrict)
	return cfg, nil
}
