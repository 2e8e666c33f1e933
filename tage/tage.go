// Package tage implements a TAGE (TAgged GEometric history length) direction
// predictor for conditional branches: a small base predictor backed by up to
// eight tagged tables indexed by progressively longer folded global-history
// windows.
package tage

const (
	// T0CounterMax is the saturation value of the base predictor's 3-bit
	// counters.
	T0CounterMax = 7
	// TICounterMax is the saturation value of a tagged table's counters.
	TICounterMax = 7
	// UseAltCounterMax is the saturation value of the alt-on-useless-bit
	// preference counter.
	UseAltCounterMax = 7
	// BasePredictorSize is the number of entries in the base predictor,
	// indexed by pc mod BasePredictorSize.
	BasePredictorSize = 128
	// TagSize is the width, in bits, of a tagged table's stored tag.
	TagSize = 14
	// MaxAllocations bounds how many new entries a single misprediction
	// may allocate across the longer-history tables.
	MaxAllocations = 1
	// MaxTables is the largest number of tagged tables supported.
	MaxTables = 8
	// HistBufferSize is the width, in bits, of the global history buffer.
	HistBufferSize = 64
)

// histLengths holds the per-table history length, table 1 (shortest) to
// table 8 (longest): 8, 16, 24, ..., 64.
var histLengths = [MaxTables + 1]uint8{0, 8, 16, 24, 32, 40, 48, 56, 64}

// entry is one cell of a tagged table.
type entry struct {
	counter uint8
	tag     uint64
	useful  bool
}

// Config configures a Predictor's table geometry. NumTables must be at
// most MaxTables; IndexSize bounds the per-table index width.
type Config struct {
	NumTables int
	IndexSize uint8
}

// DefaultConfig returns an 8-table, 12-bit-indexed predictor, matching the
// geometry exercised by the stability scenario this predictor is tested
// against.
func DefaultConfig() Config {
	return Config{NumTables: 8, IndexSize: 12}
}

// Predictor is a stateful TAGE direction predictor. It is not safe for
// concurrent use; callers serialise access the same way a core serialises
// access to its own per-thread state.
type Predictor struct {
	cfg Config

	historyBuffer fixedBitset

	basePredictor [BasePredictorSize]uint8
	tage          [MaxTables + 1][]entry

	tagMask uint64
	idxMask uint64

	useAltOnNa uint8

	// Scratch, carried from the lookup phase into the update phase for a
	// single predict() call.
	providerIndex     int
	altProviderIndex  int
	providerPredIndex uint64
	providerPred      bool
	altProviderPred   bool
	usefulBitNull     bool
}

// NewPredictor allocates a predictor with the given table geometry.
func NewPredictor(cfg Config) *Predictor {
	if cfg.NumTables <= 0 {
		cfg.NumTables = MaxTables
	}
	if cfg.NumTables > MaxTables {
		cfg.NumTables = MaxTables
	}

	p := &Predictor{
		cfg:              cfg,
		historyBuffer:    newFixedBitset(HistBufferSize),
		providerIndex:    -1,
		altProviderIndex: -1,
	}

	for i := range p.basePredictor {
		p.basePredictor[i] = T0CounterMax / 2
	}

	for t := 1; t <= cfg.NumTables; t++ {
		p.tage[t] = make([]entry, 1<<cfg.IndexSize)
	}

	p.idxMask = (uint64(1) << cfg.IndexSize) - 1
	p.tagMask = (uint64(1) << TagSize) - 1

	return p
}

// Predict resolves a conditional branch: it predicts pc's direction,
// updates every internal table with the resolved outcome taken, and
// reports whether the prediction was correct.
func (p *Predictor) Predict(pc uint64, taken bool, target uint64) bool {
	pred := p.GetPrediction(pc)
	p.UpdatePredictor(pc, taken, pred, target)
	return taken == pred
}

// GetPrediction computes the current direction prediction for pc without
// mutating any table; it does populate the provider/alt-provider scratch
// consumed by the next UpdatePredictor call. Two consecutive calls with no
// intervening UpdatePredictor return the same result.
func (p *Predictor) GetPrediction(pc uint64) bool {
	p.getTagePredictions(pc)

	if p.usefulBitNull && p.useAltOnNa > UseAltCounterMax/2 {
		return p.altProviderPred
	}
	return p.providerPred
}

// UpdatePredictor folds the resolved direction resolveDir back into the
// tables that GetPrediction just consulted, then advances the global
// history.
func (p *Predictor) UpdatePredictor(pc uint64, resolveDir, predDir bool, _ uint64) {
	p.updateProviderCounter(resolveDir)

	if resolveDir != predDir {
		p.allocateNewEntries(pc)
	}

	if p.altProviderPred != p.providerPred {
		if p.altProviderPred == resolveDir {
			p.setU(false)
			if p.useAltOnNa < UseAltCounterMax {
				p.useAltOnNa++
			}
		} else {
			p.setU(true)
			if p.useAltOnNa > 0 {
				p.useAltOnNa--
			}
		}
	}

	p.updateHistory(resolveDir)
}

// TrackOtherInst lets non-branch instructions fold into the same global
// history buffer used for indexing, the way the original predictor's
// TrackOtherInst hook does for unconditional control flow.
func (p *Predictor) TrackOtherInst(taken bool) {
	p.updateHistory(taken)
}

func (p *Predictor) getTagePredictions(pc uint64) {
	p.providerIndex = -1
	p.altProviderIndex = -1

	for t := p.cfg.NumTables; t >= 1; t-- {
		idx := p.getTageIndex(pc, t)
		tg := p.getTageTag(pc, t)

		e := &p.tage[t][idx]
		if e.tag != tg {
			continue
		}

		if p.providerIndex == -1 {
			p.providerIndex = t
			p.providerPredIndex = idx
			p.providerPred = e.counter > TICounterMax/2
			p.usefulBitNull = !e.useful
		} else if p.altProviderIndex == -1 {
			p.altProviderIndex = t
			p.altProviderPred = e.counter >= TICounterMax/2
			break
		}
	}

	if p.providerIndex == -1 {
		p.providerIndex = 0
		p.providerPredIndex = pc % BasePredictorSize
		p.providerPred = p.basePredictor[p.providerPredIndex] > T0CounterMax/2
	}
	if p.altProviderIndex == -1 {
		p.altProviderIndex = 0
		idx := pc % BasePredictorSize
		p.altProviderPred = p.basePredictor[idx] > T0CounterMax/2
	}
}

func (p *Predictor) updateProviderCounter(resolveDir bool) {
	if p.providerIndex == 0 {
		c := &p.basePredictor[p.providerPredIndex]
		if resolveDir {
			if *c < T0CounterMax {
				*c++
			}
		} else if *c > 0 {
			*c--
		}
		return
	}

	e := &p.tage[p.providerIndex][p.providerPredIndex]
	if resolveDir {
		if e.counter < TICounterMax {
			e.counter++
		}
	} else if e.counter > 0 {
		e.counter--
	}
}

func (p *Predictor) allocateNewEntries(pc uint64) {
	allocated := 0
	for t := p.providerIndex + 1; t <= p.cfg.NumTables && allocated < MaxAllocations; t++ {
		idx := p.getTageIndex(pc, t)
		e := &p.tage[t][idx]
		if e.useful {
			e.useful = false
			continue
		}

		e.tag = p.getTageTag(pc, t)
		e.counter = TICounterMax / 2
		e.useful = false
		allocated++
	}
}

func (p *Predictor) setU(val bool) {
	if p.providerIndex > 0 {
		p.tage[p.providerIndex][p.providerPredIndex].useful = val
	}
}

func (p *Predictor) updateHistory(resolveDir bool) {
	p.historyBuffer.shiftLeft1()
	p.historyBuffer.set(0, resolveDir)
}

// getTageIndex folds hist_lengths[table]'s worth of global history down to
// an IndexSize-bit value using the source's buggy fold (see buggyBitset):
// set ignores its value, so every step sets bits 0 and IndexSize/2 after the
// shift and the folded value never depends on the history. It is a fixed
// pattern of ones (all ones once the table's history length reaches
// IndexSize/2), and the index is that pattern XOR the masked pc. table == 0
// is not a valid tagged table and returns a sentinel.
func (p *Predictor) getTageIndex(pc uint64, table int) uint64 {
	if table == 0 {
		return 999999
	}

	sub := newBuggyBitset(p.cfg.IndexSize)
	half := p.cfg.IndexSize / 2

	lg := int(histLengths[table]) - 1
	for sm := 0; sm <= lg; sm++ {
		lastVal := sub.get(p.cfg.IndexSize - 1)
		midVal := sub.get(half - 1)
		sub.shiftLeft1()
		sub.set(0, lastVal != p.historyBuffer.get(uint8(sm)))
		sub.set(half, midVal != p.historyBuffer.get(uint8(lg)))
		lg--
	}

	return sub.toUlong() ^ (pc & p.idxMask)
}

// getTageTag folds the same window into a fixed 14-bit tag, using a
// correctly-behaving bitset (unlike getTageIndex).
func (p *Predictor) getTageTag(pc uint64, table int) uint64 {
	if table == 0 {
		return 999999
	}

	sub := newFixedBitset(TagSize)
	half := uint8(TagSize / 2)

	lg := int(histLengths[table]) - 1
	for sm := 0; sm <= lg; sm++ {
		lastVal := sub.get(TagSize - 1)
		midVal := sub.get(half - 1)
		sub.shiftLeft1()
		sub.set(0, lastVal != p.historyBuffer.get(uint8(sm)))
		sub.set(half, midVal != p.historyBuffer.get(uint8(lg)))
		lg--
	}

	return sub.toUlong() ^ (pc & p.tagMask)
}

// UseAltOnNa exposes the alt-provider preference counter for tests.
func (p *Predictor) UseAltOnNa() uint8 { return p.useAltOnNa }

// ProviderIndex exposes the last lookup's provider table index (0 means
// the base predictor) for tests.
func (p *Predictor) ProviderIndex() int { return p.providerIndex }

// AltProviderIndex exposes the last lookup's alt-provider table index.
func (p *Predictor) AltProviderIndex() int { return p.altProviderIndex }

// HistoryBuffer exposes the raw global history bits for tests.
func (p *Predictor) HistoryBuffer() uint64 { return p.historyBuffer.toUlong() }
