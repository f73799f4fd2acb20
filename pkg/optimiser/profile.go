package optimiser

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-community/pkg/graph"
	"github.com/dd0wney/cluso-community/pkg/logging"
	"github.com/dd0wney/cluso-community/pkg/partition"
)

// ProfileOptions tunes the adaptive resolution sweep. Zero values fall back
// to the defaults from DefaultProfileOptions.
type ProfileOptions struct {
	// MinDiffBisectValue stops subdividing an interval once the bisection
	// values at its endpoints differ by less than this
	MinDiffBisectValue float64 `yaml:"min_diff_bisect_value"`
	// MinDiffResolution stops subdividing intervals narrower than this
	MinDiffResolution float64 `yaml:"min_diff_resolution"`
	// LinearBisection picks midpoints by secant estimate on the bisection
	// value instead of the arithmetic mean
	LinearBisection bool `yaml:"linear_bisection"`
	// NumberIterations is the optimisation budget per expanded resolution
	NumberIterations int `yaml:"number_iterations"`
	// MaxDepth bounds the bisection recursion
	MaxDepth int `yaml:"max_depth"`
}

// DefaultProfileOptions returns the standard sweep thresholds
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{
		MinDiffBisectValue: 1,
		MinDiffResolution:  1e-3,
		NumberIterations:   1,
		MaxDepth:           50,
	}
}

func (opts ProfileOptions) withDefaults() ProfileOptions {
	def := DefaultProfileOptions()
	if opts.MinDiffBisectValue <= 0 {
		opts.MinDiffBisectValue = def.MinDiffBisectValue
	}
	if opts.MinDiffResolution <= 0 {
		opts.MinDiffResolution = def.MinDiffResolution
	}
	if opts.NumberIterations == 0 {
		opts.NumberIterations = def.NumberIterations
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	return opts
}

// bisectRecord memoises one expanded resolution: the optimised partition and
// whether one further pass changed nothing
type bisectRecord struct {
	part   partition.ResolutionPartition
	stable bool
}

// profileRun holds the per-invocation state of one resolution sweep. The
// memo map is never shared across invocations.
type profileRun struct {
	opt       *Optimiser
	g         *graph.Graph
	construct partition.Constructor
	opts      ProfileOptions
	records   map[float64]bisectRecord
}

// ResolutionProfile sweeps the closed resolution interval [minRes, maxRes]
// by adaptive bisection and returns the qualitatively distinct partitions it
// finds, deduplicated by grouping, repaired so each recorded resolution
// carries the best-scoring partition there, and sorted by resolution
// parameter. The constructor must produce resolution-parameterised
// partitions. Expansion results are memoised per call, so each resolution
// value is optimised at most once.
func (o *Optimiser) ResolutionProfile(g *graph.Graph, construct partition.Constructor, minRes, maxRes float64, opts ProfileOptions) ([]partition.ResolutionPartition, error) {
	if g == nil || construct == nil {
		return nil, fmt.Errorf("%w: graph and constructor are required", ErrPrecondition)
	}
	if !(minRes < maxRes) || math.IsNaN(minRes) || math.IsInf(minRes, 0) || math.IsInf(maxRes, 0) {
		return nil, fmt.Errorf("%w: malformed resolution interval [%g, %g]", ErrPrecondition, minRes, maxRes)
	}
	if _, ok := construct(g, minRes).(partition.ResolutionPartition); !ok {
		return nil, fmt.Errorf("%w: quality function is not resolution-parameterised", ErrPrecondition)
	}

	run := &profileRun{
		opt:       o,
		g:         g,
		construct: construct,
		opts:      opts.withDefaults(),
		records:   make(map[float64]bisectRecord),
	}

	start := time.Now()
	if err := run.explore(minRes, maxRes); err != nil {
		return nil, err
	}
	run.repairStepwise()
	if err := run.rootNarrow(minRes, maxRes); err != nil {
		return nil, err
	}
	result := run.collect()

	o.logger.Info("resolution profile complete",
		logging.Float64("min_resolution", minRes),
		logging.Float64("max_resolution", maxRes),
		logging.Int("expansions", len(run.records)),
		logging.Int("partitions", len(result)),
		logging.Duration("elapsed", time.Since(start)))
	if o.metrics != nil {
		o.metrics.RecordProfile(len(run.records), time.Since(start))
	}
	return result, nil
}

// expand optimises a partition at the given resolution, recording whether a
// single extra pass finds nothing more. Memoised by resolution value.
func (r *profileRun) expand(res float64) (bisectRecord, error) {
	if rec, ok := r.records[res]; ok {
		return rec, nil
	}
	p := r.construct(r.g, res)
	if _, err := r.opt.Optimise(p, r.opts.NumberIterations, nil); err != nil {
		return bisectRecord{}, err
	}
	extra, err := r.opt.Optimise(p, 1, nil)
	if err != nil {
		return bisectRecord{}, err
	}
	rec := bisectRecord{part: p.(partition.ResolutionPartition), stable: extra == 0}
	r.records[res] = rec
	return rec, nil
}

// explore subdivides [minRes, maxRes] with an explicit work stack, stopping
// per interval on resolution gap, identical endpoint groupings, bisection
// value gap, or the depth cap.
func (r *profileRun) explore(minRes, maxRes float64) error {
	if _, err := r.expand(minRes); err != nil {
		return err
	}
	if _, err := r.expand(maxRes); err != nil {
		return err
	}

	type span struct {
		lo, hi float64
		depth  int
	}
	stack := []span{{minRes, maxRes, 0}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if s.hi-s.lo < r.opts.MinDiffResolution || s.depth >= r.opts.MaxDepth {
			continue
		}
		lo, hi := r.records[s.lo], r.records[s.hi]
		if partition.MembershipEqual(lo.part, hi.part) {
			continue
		}

		mid := r.midpoint(s.lo, s.hi, lo.part, hi.part)
		if _, err := r.expand(mid); err != nil {
			return err
		}
		if math.Abs(lo.part.BisectValue()-hi.part.BisectValue()) < r.opts.MinDiffBisectValue {
			continue
		}
		stack = append(stack, span{mid, s.hi, s.depth + 1}, span{s.lo, mid, s.depth + 1})
	}
	return nil
}

// midpoint halves the interval, or takes a secant step on the bisection
// value when linear bisection is on, falling back to the mean whenever the
// estimate degenerates or escapes the bracket
func (r *profileRun) midpoint(lo, hi float64, pLo, pHi partition.ResolutionPartition) float64 {
	mean := (lo + hi) / 2
	if !r.opts.LinearBisection {
		return mean
	}
	denom := pHi.BisectValue() - pLo.BisectValue()
	if denom == 0 {
		return mean
	}
	mid := lo - pLo.BisectValue()*(hi-lo)/denom
	if mid <= lo || mid >= hi {
		return mean
	}
	return mid
}

// repairStepwise reassigns each visited resolution the best-scoring
// partition recorded anywhere in the sweep. A partition found at one
// resolution may dominate at another.
func (r *profileRun) repairStepwise() {
	all := make([]bisectRecord, 0, len(r.records))
	for _, res := range r.sortedResolutions() {
		all = append(all, r.records[res])
	}
	for _, res := range r.sortedResolutions() {
		best := r.records[res]
		bestQ := math.Inf(-1)
		for _, other := range all {
			if q := other.part.QualityAt(res); q > bestQ {
				bestQ = q
				best = other
			}
		}
		r.records[res] = bisectRecord{part: best.part, stable: false}
	}
}

// rootNarrow runs a secant/bisection hybrid toward a root of the bisection
// value, folding each new partition in only when it beats every recorded
// partition at some resolution
func (r *profileRun) rootNarrow(minRes, maxRes float64) error {
	low, err := r.findAt(minRes)
	if err != nil {
		return err
	}
	high, err := r.findAt(maxRes)
	if err != nil {
		return err
	}
	r.records[low.part.ResolutionParameter()] = low
	r.records[high.part.ResolutionParameter()] = high

	lowB, highB := low.part.BisectValue(), high.part.BisectValue()
	for step := 0; step < r.opts.MaxDepth; step++ {
		lowRes, highRes := low.part.ResolutionParameter(), high.part.ResolutionParameter()
		if math.Abs(lowB-highB) <= r.opts.MinDiffBisectValue ||
			math.Abs(lowRes-highRes) <= r.opts.MinDiffResolution {
			break
		}

		mid := (lowRes + highRes) / 2
		if r.opts.LinearBisection && highB != lowB {
			est := lowRes - lowB*(highRes-lowRes)/(highB-lowB)
			if est > lowRes && est < highRes {
				mid = est
			}
		}
		found, err := r.findAt(mid)
		if err != nil {
			return err
		}
		r.ensureMonotonic(found)
		if b := found.part.BisectValue(); b > 0 {
			high, highB = found, b
		} else {
			low, lowB = found, b
		}
	}
	return nil
}

// findAt optimises at one resolution with refinement off; not memoised
// since its results feed the bracket, not the sweep
func (r *profileRun) findAt(res float64) (bisectRecord, error) {
	p, stable, err := r.opt.FindPartition(r.g, r.construct, res, r.opts.NumberIterations)
	if err != nil {
		return bisectRecord{}, err
	}
	return bisectRecord{part: p.(partition.ResolutionPartition), stable: stable}, nil
}

// ensureMonotonic records the partition only if it strictly improves
// quality at some already-visited resolution
func (r *profileRun) ensureMonotonic(rec bisectRecord) {
	for res, existing := range r.records {
		if rec.part.QualityAt(res) > existing.part.QualityAt(res) {
			r.records[rec.part.ResolutionParameter()] = bisectRecord{part: rec.part, stable: false}
			return
		}
	}
}

// collect deduplicates by grouping in ascending resolution order and
// returns the survivors sorted by their own resolution parameter
func (r *profileRun) collect() []partition.ResolutionPartition {
	seen := make(map[string]bool)
	out := make([]partition.ResolutionPartition, 0, len(r.records))
	for _, res := range r.sortedResolutions() {
		rec := r.records[res]
		rec.part.RenumberCommunities()
		key := membershipKey(rec.part)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec.part)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ResolutionParameter() < out[j].ResolutionParameter()
	})
	// Repair can park two distinct groupings on the same resolution; keep
	// the first so the returned sequence is strictly increasing
	distinct := out[:0]
	for i, p := range out {
		if i == 0 || p.ResolutionParameter() > distinct[len(distinct)-1].ResolutionParameter() {
			distinct = append(distinct, p)
		}
	}
	return distinct
}

// sortedResolutions returns the memo keys ascending, for deterministic
// iteration over the cache
func (r *profileRun) sortedResolutions() []float64 {
	keys := make([]float64, 0, len(r.records))
	for res := range r.records {
		keys = append(keys, res)
	}
	sort.Float64s(keys)
	return keys
}

func membershipKey(p partition.VertexPartition) string {
	var b strings.Builder
	for _, comm := range p.Membership() {
		b.WriteString(strconv.Itoa(comm))
		b.WriteByte(',')
	}
	return b.String()
}
