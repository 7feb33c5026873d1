package oci

import (
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	defaultArraySize   = 1
	defaultPieceSize   = 4096
	defaultStringSize  = 4000
	defaultBinarySize  = 2000
	maxArraySize       = 65535
	maxPrefetchRows    = 1 << 20
	defaultLogLevelEnv = "GOOCI_LOG_LEVEL"
)

// Options configures a Statement and the cursors it opens
type Options struct {
	// ArraySize is the number of rows fetched per round trip and the
	// number of rows each define buffer holds (defaults to 1)
	ArraySize int
	// PrefetchRows is passed to the library before a query executes.
	// 0 leaves the library default.
	PrefetchRows int
	// PieceSize is the chunk size of piecewise transfers and LOB reads
	// (defaults to 4096)
	PieceSize int
	// StringSize is the define width of character columns whose described
	// size is 0 (defaults to 4000)
	StringSize int
	// BinarySize is the define width of raw columns whose described size
	// is 0 (defaults to 2000)
	BinarySize int
	// Timezone is the location of DATE and TIMESTAMP values, which carry
	// no zone of their own (defaults to UTC)
	Timezone *time.Location
	// LogLevel names an hclog level used when Logger is nil
	LogLevel string

	Logger hclog.Logger
}

// Option configures Options
type Option func(*Options)

// WithArraySize sets the number of rows fetched per round trip
func WithArraySize(n int) Option {
	return func(o *Options) {
		o.ArraySize = n
	}
}

// WithPrefetchRows sets the library's row prefetch count
func WithPrefetchRows(n int) Option {
	return func(o *Options) {
		o.PrefetchRows = n
	}
}

// WithPieceSize sets the chunk size of piecewise transfers
func WithPieceSize(n int) Option {
	return func(o *Options) {
		o.PieceSize = n
	}
}

// WithDefaultStringSize sets the define width for undescribed character
// columns
func WithDefaultStringSize(n int) Option {
	return func(o *Options) {
		o.StringSize = n
	}
}

// WithDefaultBinarySize sets the define width for undescribed raw columns
func WithDefaultBinarySize(n int) Option {
	return func(o *Options) {
		o.BinarySize = n
	}
}

// WithTimezone sets the location used for zone-less temporal values
func WithTimezone(tz *time.Location) Option {
	return func(o *Options) {
		o.Timezone = tz
	}
}

// WithLogger sets the logger
func WithLogger(l hclog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		ArraySize:  defaultArraySize,
		PieceSize:  defaultPieceSize,
		StringSize: defaultStringSize,
		BinarySize: defaultBinarySize,
		Timezone:   time.UTC,
	}
}

// fileOptions is the loosely typed form of Options accepted by
// DecodeOptions
type fileOptions struct {
	ArraySize    int    `mapstructure:"array_size"`
	PrefetchRows int    `mapstructure:"prefetch_rows"`
	PieceSize    int    `mapstructure:"piece_size"`
	StringSize   int    `mapstructure:"string_size"`
	BinarySize   int    `mapstructure:"binary_size"`
	Timezone     string `mapstructure:"timezone"`
	LogLevel     string `mapstructure:"log_level"`
}

// DecodeOptions builds Options from a loosely typed map, such as a parsed
// configuration file. Values are weakly typed: "100" decodes into an int
// field. timezone accepts an IANA name. Unknown keys are an error.
func DecodeOptions(m map[string]interface{}) (Options, error) {
	def := DefaultOptions()
	raw := fileOptions{
		ArraySize:  def.ArraySize,
		PieceSize:  def.PieceSize,
		StringSize: def.StringSize,
		BinarySize: def.BinarySize,
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &raw,
	})
	if err != nil {
		return def, errors.Wrap(err, "oci: options decoder")
	}
	if err := dec.Decode(m); err != nil {
		return def, &ArgumentError{Op: "DecodeOptions", Message: err.Error()}
	}
	opts := Options{
		ArraySize:    raw.ArraySize,
		PrefetchRows: raw.PrefetchRows,
		PieceSize:    raw.PieceSize,
		StringSize:   raw.StringSize,
		BinarySize:   raw.BinarySize,
		Timezone:     def.Timezone,
		LogLevel:     raw.LogLevel,
	}
	if raw.Timezone != "" {
		loc, err := time.LoadLocation(raw.Timezone)
		if err != nil {
			return def, argumentError("DecodeOptions", "timezone", "%v", err)
		}
		opts.Timezone = loc
	}
	if err := opts.validate("DecodeOptions"); err != nil {
		return def, err
	}
	return opts, nil
}

func buildOptions(base Options, opts []Option) (Options, error) {
	for _, opt := range opts {
		opt(&base)
	}
	if err := base.validate("NewStatement"); err != nil {
		return base, err
	}
	return base, nil
}

func (o *Options) validate(op string) error {
	if o.ArraySize < 1 || o.ArraySize > maxArraySize {
		return argumentError(op, "ArraySize", "must be in [1,%d], got %d", maxArraySize, o.ArraySize)
	}
	if o.PrefetchRows < 0 || o.PrefetchRows > maxPrefetchRows {
		return argumentError(op, "PrefetchRows", "must be in [0,%d], got %d", maxPrefetchRows, o.PrefetchRows)
	}
	if o.PieceSize < 1 || o.PieceSize > maxLongSize {
		return argumentError(op, "PieceSize", "must be positive, got %d", o.PieceSize)
	}
	if o.StringSize < 1 || o.StringSize > maxVarSize {
		return argumentError(op, "StringSize", "must be in [1,%d], got %d", maxVarSize, o.StringSize)
	}
	if o.BinarySize < 1 || o.BinarySize > maxVarSize {
		return argumentError(op, "BinarySize", "must be in [1,%d], got %d", maxVarSize, o.BinarySize)
	}
	if o.Timezone == nil {
		o.Timezone = time.UTC
	}
	if o.Logger == nil {
		o.Logger = newLogger(o.LogLevel)
	}
	return nil
}

// newLogger returns a null logger unless a level is configured, either
// explicitly or through GOOCI_LOG_LEVEL.
func newLogger(level string) hclog.Logger {
	if level == "" {
		level = os.Getenv(defaultLogLevelEnv)
	}
	if level == "" {
		return hclog.NewNullLogger()
	}
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "oci",
		Level:  lvl,
		Output: os.Stderr,
	})
}
