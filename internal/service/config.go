package service

import (
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/CZERTAINLY/Launcher/internal/process"

	"github.com/spf13/viper"
)

// Config holds the runtime settings which do not belong to a job file.
type Config struct {
	Verbose      bool          `mapstructure:"verbose"`
	Timeout      time.Duration `mapstructure:"timeout"` // > 0 bounds jobs without own timeout
	WaitDelay    time.Duration `mapstructure:"wait_delay"`
	MaxLineBytes int           `mapstructure:"max_line_bytes"`
	Parallelism  int           `mapstructure:"parallelism"`
}

// NewViper returns a viper instance with defaults for every Config key and
// LAUNCHER_* environment variables bound, e.g. LAUNCHER_WAIT_DELAY=2s.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("verbose", false)
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("wait_delay", process.DefaultWaitDelay)
	v.SetDefault("max_line_bytes", process.DefaultMaxLineBytes)
	v.SetDefault("parallelism", runtime.NumCPU())
	v.SetEnvPrefix("LAUNCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func ParseConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg)
	return cfg, err
}

// Runner returns a process runner configured by c.
func (c Config) Runner(logger *slog.Logger) process.Runner {
	r := process.NewRunner(logger).WithWaitDelay(c.WaitDelay)
	if c.MaxLineBytes > 0 {
		r = r.WithMaxLineBytes(c.MaxLineBytes)
	}
	return r
}
