package optimizer

import (
	"github.com/cohenw/hilbertcluster/hilbert"
	"github.com/cohenw/hilbertcluster/randx"
)

// Schedule derives the candidate permutation for one trial from the
// current round base. Implementations are pure apart from the draws
// they take from rng.
type Schedule interface {
	Next(rng *randx.Source, prev hilbert.Permutation, iteration int) hilbert.Permutation
}

// HalvingSchedule scrambles d >> iteration axes, floored at five (or
// the full degree when d < 5). Early rounds explore broadly, up to a
// full rescramble; later rounds refine locally without ever going
// quiet.
type HalvingSchedule struct{}

var _ Schedule = HalvingSchedule{}

// Next implements Schedule.
func (HalvingSchedule) Next(rng *randx.Source, prev hilbert.Permutation, iteration int) hilbert.Permutation {
	d := prev.Degree()
	floor := 5
	if d < floor {
		floor = d
	}
	k := d >> uint(iteration)
	if k < floor {
		k = floor
	}
	return prev.Scramble(rng, k)
}
