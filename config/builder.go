package config

import (
	"time"

	"github.com/pkessler/favwatch"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The remote API client is constructed separately (it needs credentials
// from the same config; see the api package) and supplied by the caller,
// so this only covers the watcher-level settings.
func BuildOptions(cfg *Config) []favwatch.Option {
	var opts []favwatch.Option

	if ms := cfg.PollingIntervalMinMs; ms != nil && *ms > 0 {
		opts = append(opts, favwatch.WithPollingIntervalMin(time.Duration(*ms)*time.Millisecond))
	}
	if ms := cfg.PollingIntervalMaxMs; ms != nil && *ms > 0 {
		opts = append(opts, favwatch.WithPollingIntervalMax(time.Duration(*ms)*time.Millisecond))
	}
	if ms := cfg.PollingIntervalMs; ms != nil && *ms > 0 {
		opts = append(opts, favwatch.WithPollingInterval(time.Duration(*ms)*time.Millisecond))
	}
	if ms := cfg.AuthIntervalMs; ms != nil && *ms > 0 {
		opts = append(opts, favwatch.WithAuthenticationInterval(time.Duration(*ms)*time.Millisecond))
	}

	if b := cfg.Backoff403; b != nil && b.Threshold > 0 && b.WindowMs > 0 && b.CooldownMs > 0 {
		opts = append(opts, favwatch.WithBackoff403(
			b.Threshold,
			time.Duration(b.WindowMs)*time.Millisecond,
			time.Duration(b.CooldownMs)*time.Millisecond,
		))
	}

	if cfg.Status.Enabled {
		opts = append(opts, favwatch.WithStatusPort(cfg.Status.Port))
	}

	return opts
}
