package runner

import (
	"os"

	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/edgefinder/pkg/version"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	envutil "github.com/projectdiscovery/utils/env"
	fileutil "github.com/projectdiscovery/utils/file"
	updateutils "github.com/projectdiscovery/utils/update"
)

var au *aurora.Aurora

var (
	// DefaultCountryEnv allows pinning the target country without flags.
	DefaultCountryEnv = envutil.GetEnvOrDefault("EDGEFINDER_COUNTRY", "CN")
	// DefaultOutputEnv allows pinning the output file without flags.
	DefaultOutputEnv = envutil.GetEnvOrDefault("EDGEFINDER_OUTPUT", "nodes.txt")
)

// Options contains the configuration options for one optimization run.
type Options struct {
	ConfigFile string

	TargetCountry string
	TargetCount   int
	TargetPort    int
	MaxCandidates int
	Concurrency   int
	OutputFile    string

	Verbose            bool
	Silent             bool
	NoColor            bool
	Version            bool
	DisableUpdateCheck bool
}

// ParseOptions parses the command line flags provided by a user
func ParseOptions() *Options {
	options := &Options{}
	flagSet := goflags.NewFlagSet()

	flagSet.SetDescription(`edgefinder discovers the lowest-latency anycast edge IPs of a CDN for a target country by sampling its published ranges and probing them concurrently`)

	flagSet.CreateGroup("input", "Input",
		flagSet.StringVar(&options.ConfigFile, "config", "", "cli flag configuration file"),
		flagSet.StringVarP(&options.TargetCountry, "country", "c", DefaultCountryEnv, "target country code for returned endpoints"),
		flagSet.IntVarP(&options.TargetCount, "count", "n", 10, "number of endpoints to find"),
	)

	flagSet.CreateGroup("probe", "Probe",
		flagSet.IntVarP(&options.TargetPort, "port", "p", 443, "target port to probe"),
		flagSet.IntVarP(&options.MaxCandidates, "max-ips", "m", 512, "maximum candidates tested per source"),
		flagSet.IntVarP(&options.Concurrency, "concurrency", "t", 32, "number of concurrent probes"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.StringVarP(&options.OutputFile, "output", "o", DefaultOutputEnv, "file to write ranked endpoints to"),
	)

	flagSet.CreateGroup("update", "Update",
		flagSet.CallbackVarP(GetUpdateCallback(), "update", "up", "update edgefinder to latest version"),
		flagSet.BoolVarP(&options.DisableUpdateCheck, "disable-update-check", "duc", false, "disable automatic edgefinder update check"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only results in output"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	// configure aurora for logging
	au = aurora.New(aurora.WithColors(true))

	options.configureOutput()

	showBanner()

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", version.GetVersion())
		os.Exit(0)
	}

	if !options.DisableUpdateCheck {
		latestVersion, err := updateutils.GetToolVersionCallback("edgefinder", version.GetVersion())()
		if err != nil {
			if options.Verbose {
				gologger.Error().Msgf("edgefinder version check failed: %v", err.Error())
			}
		} else {
			gologger.Info().Msgf("Current edgefinder version %v %v", version.GetVersion(), updateutils.GetVersionDescription(version.GetVersion(), latestVersion))
		}
	}

	if options.ConfigFile != "" {
		_ = options.loadConfigFrom(options.ConfigFile)
	}

	options.validate()

	return options
}

// GetUpdateCallback returns a callback function that updates edgefinder
func GetUpdateCallback() func() {
	return func() {
		showBanner()
		updateutils.GetUpdateToolCallback("edgefinder", version.GetVersion())()
	}
}

// configureOutput configures the output on the screen
func (options *Options) configureOutput() {
	// If the user desires verbose output, show verbose output
	if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
		au = aurora.New(aurora.WithColors(false))
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}

func (options *Options) validate() {
	if options.TargetCount <= 0 {
		gologger.Fatal().Msgf("endpoint count must be positive, got %d", options.TargetCount)
	}
	if options.Concurrency <= 0 {
		gologger.Fatal().Msgf("concurrency must be positive, got %d", options.Concurrency)
	}
	if options.MaxCandidates <= 0 {
		gologger.Fatal().Msgf("per-source candidate cap must be positive, got %d", options.MaxCandidates)
	}
	if options.TargetPort < 1 || options.TargetPort > 65535 {
		gologger.Fatal().Msgf("port out of range: %d", options.TargetPort)
	}
}

func (options *Options) loadConfigFrom(location string) error {
	return fileutil.Unmarshal(fileutil.YAML, []byte(location), options)
}
