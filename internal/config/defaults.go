package config

const (
	defaultStateDir        = "~/.local/share/mediasort"
	defaultLogDir          = "~/.local/share/mediasort/logs"
	defaultWorkers         = 1
	defaultMinYear         = 1990
	defaultHashAlgorithm   = "sha256"
	defaultHashBufferSize  = 256 * 1024
	minHashBufferSize      = 4096
	defaultExifToolBinary  = "exiftool"
	defaultExifToolTimeout = 30
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultRetentionDays   = 30
	defaultLogMaxSizeMB    = 10
	maxWorkers             = 64
)

// HashAlgorithms lists the accepted digest names. sha256 is the strong default;
// md5 and xxh3 are faster, weaker fallbacks.
var HashAlgorithms = []string{"sha256", "md5", "xxh3"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Migrate: Migrate{
			Workers:       defaultWorkers,
			UseMetadata:   true,
			MtimeFallback: true,
		},
		Classify: Classify{
			DayFirst: true,
			MinYear:  defaultMinYear,
		},
		Hashing: Hashing{
			Algorithm:  defaultHashAlgorithm,
			BufferSize: defaultHashBufferSize,
		},
		ExifTool: ExifTool{
			Binary:         defaultExifToolBinary,
			TimeoutSeconds: defaultExifToolTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
		},
	}
}
