// Package advisor decides how much download work may run at once.
//
// The Advisor samples host load, free memory and network throughput and
// turns them into a model.ConcurrencyBudget. It never fails: any signal that
// cannot be measured simply leaves the configured default in place.
package advisor

import (
	"context"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iamfaazi/savemyexam-downloader/internal/model"
	"github.com/rs/zerolog/log"
)

// Policy thresholds.
const (
	idleLoad       = 1.0
	busyLoad       = 2.0
	plentyFreeMem  = 0.5
	scarceFreeMem  = 0.2
	maxSectionCap  = 4
	busySections   = 2
	fastThroughput = 1_000_000 // bytes/s
	slowThroughput = 50_000    // bytes/s
	fastDownloads  = 10
	slowDownloads  = 2
)

// Config holds the advisor's defaults and probe settings.
type Config struct {
	SectionDefault  int
	DownloadDefault int

	ProbeURL      string
	ProbeMaxBytes int64
	ProbeTimeout  time.Duration
}

// DefaultConfig returns the stock defaults (1 section, 5 downloads).
func DefaultConfig() Config {
	return Config{
		SectionDefault:  1,
		DownloadDefault: 5,
		ProbeURL:        "http://ipv4.download.thinkbroadband.com/10MB.zip",
		ProbeMaxBytes:   1 << 20,
		ProbeTimeout:    10 * time.Second,
	}
}

// HostStats is a sample of host resource usage.
type HostStats struct {
	Load1       float64
	FreeMemFrac float64
	CPUs        int
}

// Prober measures network throughput in bytes per second.
type Prober interface {
	MeasureThroughput(ctx context.Context, url string, maxBytes int64) (float64, error)
}

// Signals are the raw inputs to the budget policy. A false Has* flag means
// the signal could not be measured.
type Signals struct {
	Host       HostStats
	HasHost    bool
	Throughput float64
	HasNetwork bool
}

// Advisor computes concurrency budgets.
type Advisor struct {
	cfg    Config
	prober Prober
	host   func() (HostStats, error)
}

// New creates an Advisor. A nil prober disables the network probe.
func New(cfg Config, prober Prober) *Advisor {
	return &Advisor{
		cfg:    cfg,
		prober: prober,
		host:   readHostStats,
	}
}

// ComputeBudget samples the host and network and applies the policy.
func (a *Advisor) ComputeBudget(ctx context.Context) model.ConcurrencyBudget {
	sig := a.sample(ctx)
	budget := Decide(a.cfg, sig)

	ev := log.Debug().
		Int("section_limit", budget.SectionLimit).
		Int("download_limit", budget.DownloadLimit)
	if sig.HasHost {
		ev = ev.Float64("load1", sig.Host.Load1).Float64("free_mem", sig.Host.FreeMemFrac)
	}
	if sig.HasNetwork {
		ev = ev.Str("throughput", humanize.Bytes(uint64(sig.Throughput))+"/s")
	}
	ev.Msg("concurrency budget computed")

	return budget
}

func (a *Advisor) sample(ctx context.Context) Signals {
	var sig Signals

	if stats, err := a.host(); err != nil {
		log.Debug().Err(err).Msg("host stats unavailable")
	} else {
		sig.Host, sig.HasHost = stats, true
	}

	if a.prober == nil || a.cfg.ProbeURL == "" {
		return sig
	}

	probeCtx := ctx
	if a.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, a.cfg.ProbeTimeout)
		defer cancel()
	}

	maxBytes := a.cfg.ProbeMaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultConfig().ProbeMaxBytes
	}

	rate, err := a.prober.MeasureThroughput(probeCtx, a.cfg.ProbeURL, maxBytes)
	if err != nil {
		log.Debug().Err(err).Str("url", a.cfg.ProbeURL).Msg("throughput probe failed")
		return sig
	}
	sig.Throughput, sig.HasNetwork = rate, true
	return sig
}

// Decide applies the budget policy to measured signals.
//
// Sections: idle host (load < 1, free memory > 50%) → min(4, CPUs); busy host
// (load > 2 or free memory < 20%) → 2; otherwise the default.
// Downloads: > 1 MB/s → 10; < 50 KB/s → 2; otherwise the default.
func Decide(cfg Config, sig Signals) model.ConcurrencyBudget {
	budget := model.ConcurrencyBudget{
		SectionLimit:  cfg.SectionDefault,
		DownloadLimit: cfg.DownloadDefault,
	}

	if sig.HasHost {
		h := sig.Host
		switch {
		case h.Load1 < idleLoad && h.FreeMemFrac > plentyFreeMem:
			cpus := h.CPUs
			if cpus < 1 {
				cpus = runtime.NumCPU()
			}
			budget.SectionLimit = min(maxSectionCap, cpus)
		case h.Load1 > busyLoad || h.FreeMemFrac < scarceFreeMem:
			budget.SectionLimit = busySections
		}
	}

	if sig.HasNetwork {
		switch {
		case sig.Throughput > fastThroughput:
			budget.DownloadLimit = fastDownloads
		case sig.Throughput < slowThroughput:
			budget.DownloadLimit = slowDownloads
		}
	}

	return budget.Normalize()
}
