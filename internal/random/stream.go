package random

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/cespare/xxhash/v2"

	"simulacra/simerr"
)

// deriveSeed builds the per-call PRNG seed from the stream's key, the
// current simulation time, an optional additional disambiguating key, and
// the run's global seed. The reference this subsystem is grounded on hashes
// the same underscore-joined string with SHA-1 and takes it modulo 2**32;
// here a 64-bit non-cryptographic digest (xxhash) is reduced the same way,
// which is faster and equally uniform for this purpose.
func deriveSeed(streamKey string, clockTime float64, additionalKey string, globalSeed uint32) uint32 {
	s := fmt.Sprintf("%s_%v_%s_%d", streamKey, clockTime, additionalKey, globalSeed)
	h := xxhash.Sum64String(s)
	return uint32(h % 4294967296)
}

// Stream is a single named source of randomness, independently seeded per
// call so draws are reproducible given the same key, clock time, and global
// seed, per spec §4.7.
type Stream struct {
	key          string
	initializesCRN bool
	globalSeed   uint32
	clockFn      func() float64
	indexMap     *IndexMap
	keysFor      func(index []int) ([]KeyTuple, error)
}

// GetDraw returns one uniform(0,1) draw per element of index. If the stream
// initializes CRN attributes, draws are taken positionally from the head of
// the stream's raw draw pool (the simulants being created now own the first
// len(index) slots); otherwise each simulant's draw is looked up by its
// registered index-map position, so the same simulant draws the same value
// across counterfactual runs regardless of population order or size.
func (s *Stream) GetDraw(index []int, additionalKey string) ([]float64, error) {
	if len(index) == 0 {
		return nil, nil
	}
	if s.initializesCRN && additionalKey != "" {
		return nil, simerr.NewRandomnessError("a CRN-initializing stream cannot take an additional key", s.key)
	}
	seed := deriveSeed(s.key, s.clockFn(), additionalKey, s.globalSeed)
	rng := rand.New(rand.NewSource(int64(seed)))

	poolSize := s.indexMap.Size()
	if s.initializesCRN && poolSize < len(index) {
		poolSize = len(index)
	}
	raw := make([]float64, poolSize)
	for i := range raw {
		raw[i] = rng.Float64()
	}

	draws := make([]float64, len(index))
	if s.initializesCRN {
		for i := range index {
			draws[i] = raw[i]
		}
		return draws, nil
	}

	keys, err := s.keysFor(index)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		pos, ok := s.indexMap.Lookup(k)
		if !ok {
			if s.indexMap.useCRN {
				return nil, simerr.NewRandomnessError("unregistered key tuple requested from CRN stream", s.key)
			}
			pos = index[i] % poolSize
		}
		draws[i] = raw[pos]
	}
	return draws, nil
}

// FilterForProbability keeps the elements of index whose draw falls below
// the corresponding probability. probability may have length 1 (broadcast)
// or len(index).
func (s *Stream) FilterForProbability(index []int, probability []float64, additionalKey string) ([]int, error) {
	draws, err := s.GetDraw(index, additionalKey)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(index))
	for i, row := range index {
		p := probability[0]
		if len(probability) > 1 {
			p = probability[i]
		}
		if draws[i] < p {
			out = append(out, row)
		}
	}
	return out, nil
}

// FilterForRate converts annual rates to per-step probabilities via
// 1 - exp(-rate * stepSizeYears) and filters as FilterForProbability does.
func (s *Stream) FilterForRate(index []int, rate []float64, stepSizeYears float64, additionalKey string) ([]int, error) {
	p := make([]float64, len(rate))
	for i, r := range rate {
		p[i] = 1 - math.Exp(-r*stepSizeYears)
	}
	return s.FilterForProbability(index, p, additionalKey)
}

// residualMarker is the RESIDUAL_CHOICE sentinel: a weight slot whose final
// value is "whatever probability mass remains after the others are spoken
// for," per spec §4.7.
const residualMarker = -1.0

func ResidualChoice() float64 { return residualMarker }

// Choice draws one option per element of index, weighted per spec §4.7.
// weights holds one vector per row (len(weights) == 1 broadcasts the same
// vector to every row); at most one entry per vector may be ResidualChoice().
func (s *Stream) Choice(index []int, options []string, weights [][]float64, additionalKey string) ([]string, error) {
	draws, err := s.GetDraw(index, additionalKey)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(index))
	for i := range index {
		w := weights[0]
		if len(weights) > 1 {
			w = weights[i]
		}
		resolved, err := resolveWeights(w)
		if err != nil {
			return nil, err
		}
		out[i] = pickFromCDF(options, resolved, draws[i])
	}
	return out, nil
}

func resolveWeights(w []float64) ([]float64, error) {
	residualIdx := -1
	sum := 0.0
	for i, v := range w {
		if v == residualMarker {
			if residualIdx != -1 {
				return nil, simerr.NewRandomnessError("more than one RESIDUAL_CHOICE weight in a single row", "")
			}
			residualIdx = i
			continue
		}
		sum += v
	}
	const epsilon = 1e-8
	if sum > 1+epsilon {
		return nil, simerr.NewRandomnessError("choice weights sum to more than 1 before the residual is applied", fmt.Sprintf("%v", sum))
	}
	out := append([]float64(nil), w...)
	if residualIdx != -1 {
		out[residualIdx] = 1 - sum
	}
	return out, nil
}

func pickFromCDF(options []string, weights []float64, draw float64) string {
	cum := 0.0
	for i, w := range weights {
		cum += w
		if draw < cum {
			return options[i]
		}
	}
	return options[len(options)-1]
}

// sortedUnique returns the distinct strings of ss in sorted order.
func sortedUnique(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
