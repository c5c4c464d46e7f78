package train

import (
	"math"
	"math/rand"

	"github.com/rotisserie/eris"

	"github.com/tablewise/salesight/internal/feature"
)

// SplitMode selects how rows are assigned to train and test.
type SplitMode string

const (
	// SplitTime holds out the trailing fraction of each entity's
	// series: the model is always evaluated on days after the days it
	// trained on, matching how it will be used. Default.
	SplitTime SplitMode = "time"
	// SplitRandom shuffles rows before splitting. Opt-in, for
	// comparison against the time-respecting number; on autocorrelated
	// series it flatters the model.
	SplitRandom SplitMode = "random"
)

// Set is one side of a split.
type Set struct {
	X    [][]float64
	Y    []float64
	Refs []feature.RowRef
}

func (s *Set) add(x []float64, y float64, ref feature.RowRef) {
	s.X = append(s.X, x)
	s.Y = append(s.Y, y)
	s.Refs = append(s.Refs, ref)
}

// Split partitions the matrix's training rows (defined targets only).
// testFraction must be in (0, 1); seed drives the shuffle in random
// mode and is unused in time mode.
func Split(m *feature.Matrix, mode SplitMode, testFraction float64, seed int64) (train, test *Set, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, eris.Errorf("train: test fraction %.2f outside (0, 1)", testFraction)
	}
	x, y, refs := m.TrainingRows()
	if len(y) < 2 {
		return nil, nil, eris.New("train: not enough rows with a defined target to split")
	}

	train, test = &Set{}, &Set{}
	switch mode {
	case SplitRandom:
		idx := rand.New(rand.NewSource(seed)).Perm(len(y))
		nTest := int(math.Round(testFraction * float64(len(y))))
		if nTest == 0 {
			nTest = 1
		}
		for k, i := range idx {
			if k < nTest {
				test.add(x[i], y[i], refs[i])
			} else {
				train.add(x[i], y[i], refs[i])
			}
		}
	case SplitTime, "":
		// rows arrive grouped by entity in date order; cut each
		// entity's trailing fraction
		for lo := 0; lo < len(refs); {
			hi := lo
			for hi < len(refs) && refs[hi].EntityID == refs[lo].EntityID {
				hi++
			}
			n := hi - lo
			nTest := int(math.Ceil(testFraction * float64(n)))
			if nTest >= n {
				nTest = n - 1
			}
			cut := hi - nTest
			for i := lo; i < hi; i++ {
				if i < cut {
					train.add(x[i], y[i], refs[i])
				} else {
					test.add(x[i], y[i], refs[i])
				}
			}
			lo = hi
		}
	default:
		return nil, nil, eris.Errorf("train: unknown split mode %q", mode)
	}

	if len(train.Y) == 0 || len(test.Y) == 0 {
		return nil, nil, eris.New("train: split produced an empty set")
	}
	return train, test, nil
}
