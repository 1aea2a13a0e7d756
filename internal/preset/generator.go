package preset

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/AngelCh415/fakestat/internal/models"
)

var advertiserNames = []string{
	"ALPHA", "BETA", "GAMMA", "DELTA", "EPSILON", "ZETA", "ETA", "THETA",
	"IOTA", "KAPPA", "LAMBDA", "MU", "NU", "XI", "OMICRON", "PI",
	"RHO", "SIGMA", "TAU", "UPSILON", "PHI", "CHI", "PSI", "OMEGA",
	"APEX", "VERTEX", "MATRIX", "NEXUS", "PRISM", "QUANTUM", "VORTEX",
}

var noobNames = []string{
	"NOOB_TRAFFIC", "BAD_LEADS", "ZERO_FTD", "WASTE_MONEY", "NO_CONVERT",
	"TRASH_ADS", "POOR_QUALITY", "USELESS_TRAFFIC", "FAKE_LEADS", "SPAM_SOURCE",
}

// quick-add pool, drawn with replacement
var quickNoobNames = noobNames[:8]

const (
	noobLeadsMin   = 6
	noobLeadsMax   = 9
	maxAdvertisers = 20
	suffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Config drives one preset run. Conversion bounds are percentages.
type Config struct {
	LeadsMin         int     `json:"leads_min"`
	LeadsMax         int     `json:"leads_max"`
	AdvertisersCount int     `json:"advertisers_count"`
	ConversionMin    float64 `json:"conversion_min"`
	ConversionMax    float64 `json:"conversion_max"`
	IncludeNoob      bool    `json:"include_noob"`
}

// DefaultConfig mirrors the generator form defaults.
func DefaultConfig() Config {
	return Config{
		LeadsMin:         10,
		LeadsMax:         100,
		AdvertisersCount: 5,
		ConversionMin:    5,
		ConversionMax:    25,
	}
}

var ErrInvalidConfig = errors.New("invalid preset config")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

func (c Config) Validate() error {
	switch {
	case c.LeadsMin < 0:
		return &ValidationError{Field: "leads_min", Reason: "must not be negative"}
	case c.LeadsMin > c.LeadsMax:
		return &ValidationError{Field: "leads_min", Reason: "must not exceed leads_max"}
	case c.LeadsMax-c.LeadsMin >= math.MaxInt:
		return &ValidationError{Field: "leads_max", Reason: "range too large"}
	case !(c.ConversionMin >= 0) || !(c.ConversionMax <= 100):
		return &ValidationError{Field: "conversion", Reason: "must be within 0-100"}
	case c.ConversionMin > c.ConversionMax:
		return &ValidationError{Field: "conversion_min", Reason: "must not exceed conversion_max"}
	case c.AdvertisersCount < 1 || c.AdvertisersCount > maxAdvertisers:
		return &ValidationError{Field: "advertisers_count", Reason: fmt.Sprintf("must be within 1-%d", maxAdvertisers)}
	}
	return nil
}

// Target is the store a preset is written into.
type Target interface {
	Clear()
	Create(models.CreateRequest) models.TrafficStat
}

// Summary reports what a run produced.
type Summary struct {
	Config    Config               `json:"config"`
	Generated int                  `json:"generated"`
	Records   []models.TrafficStat `json:"records"`
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generated preset:\n")
	fmt.Fprintf(&b, "  • %d advertisers\n", s.Config.AdvertisersCount)
	fmt.Fprintf(&b, "  • Leads: %d-%d\n", s.Config.LeadsMin, s.Config.LeadsMax)
	fmt.Fprintf(&b, "  • Conversion: %g%%-%g%%\n", s.Config.ConversionMin, s.Config.ConversionMax)
	if s.Config.IncludeNoob {
		fmt.Fprintf(&b, "  • One noob included (%d-%d leads, 0%% conversion)\n", noobLeadsMin, noobLeadsMax)
	}
	return b.String()
}

type Generator struct {
	mu   sync.Mutex // guards rng
	rng  *rand.Rand
	log  *slog.Logger
	hook func(Summary, error)
}

type Option func(*Generator)

func WithRand(r *rand.Rand) Option { return func(g *Generator) { g.rng = r } }

// WithRunHook is called after every Run, successful or not.
func WithRunHook(fn func(Summary, error)) Option { return func(g *Generator) { g.hook = fn } }

func NewGenerator(log *slog.Logger, opts ...Option) *Generator {
	g := &Generator{log: log}
	for _, o := range opts {
		o(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	return g
}

// Run validates cfg, clears st and fills it with a fresh preset.
// On a validation error st is not touched.
func (g *Generator) Run(st Target, cfg Config) (Summary, error) {
	sum, err := g.run(st, cfg)
	if g.hook != nil {
		g.hook(sum, err)
	}
	return sum, err
}

func (g *Generator) run(st Target, cfg Config) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		g.log.Warn("preset rejected", slog.String("err", err.Error()))
		return Summary{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	st.Clear()

	normal := cfg.AdvertisersCount
	if cfg.IncludeNoob {
		normal-- // one slot goes to the noob
	}

	used := make(map[string]struct{}, cfg.AdvertisersCount)
	records := make([]models.TrafficStat, 0, cfg.AdvertisersCount)
	for i := 0; i < normal; i++ {
		name := g.pickName(advertiserNames, used, "ADV")
		leads := g.intBetween(cfg.LeadsMin, cfg.LeadsMax)
		pct := cfg.ConversionMin + g.rng.Float64()*(cfg.ConversionMax-cfg.ConversionMin)
		ftds := int(math.Floor(float64(leads) * pct / 100))
		records = append(records, st.Create(models.CreateRequest{
			Name:            name,
			SuccessfulLeads: leads,
			TotalLeads:      leads,
			TotalFTDs:       ftds,
		}))
	}
	if cfg.IncludeNoob {
		name := g.pickName(noobNames, used, "NOOB")
		records = append(records, st.Create(noobRequest(name, g.intBetween(noobLeadsMin, noobLeadsMax))))
	}

	g.log.Info("preset generated",
		slog.Int("advertisers", cfg.AdvertisersCount),
		slog.Int("records", len(records)),
		slog.Bool("noob", cfg.IncludeNoob))
	return Summary{Config: cfg, Generated: len(records), Records: records}, nil
}

// AddNoob appends one zero-conversion record without clearing st.
func (g *Generator) AddNoob(st interface {
	Create(models.CreateRequest) models.TrafficStat
}) models.TrafficStat {
	g.mu.Lock()
	name := quickNoobNames[g.rng.Intn(len(quickNoobNames))]
	leads := g.intBetween(noobLeadsMin, noobLeadsMax)
	g.mu.Unlock()

	stat := st.Create(noobRequest(name, leads))
	g.log.Info("noob added", slog.String("name", name), slog.Int("leads", leads))
	return stat
}

func noobRequest(name string, leads int) models.CreateRequest {
	return models.CreateRequest{
		Name:            name,
		SuccessfulLeads: leads,
		TotalLeads:      leads,
	}
}

// pickName draws from pool without replacement within one run. Once the
// pool is exhausted it falls back to PREFIX_XXX.
func (g *Generator) pickName(pool []string, used map[string]struct{}, prefix string) string {
	avail := make([]string, 0, len(pool))
	for _, n := range pool {
		if _, ok := used[n]; !ok {
			avail = append(avail, n)
		}
	}
	var name string
	if len(avail) > 0 {
		name = avail[g.rng.Intn(len(avail))]
	} else {
		for {
			name = prefix + "_" + g.suffix(3)
			if _, ok := used[name]; !ok {
				break
			}
		}
	}
	used[name] = struct{}{}
	return name
}

func (g *Generator) suffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[g.rng.Intn(len(suffixAlphabet))]
	}
	return string(b)
}

func (g *Generator) intBetween(lo, hi int) int { return lo + g.rng.Intn(hi-lo+1) }
