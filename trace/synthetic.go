package trace

import (
	"math/rand"

	"github.com/sarchlab/memotime/bbl"
)

// SyntheticConfig parameterises GenerateSynthetic.
type SyntheticConfig struct {
	// Seed drives the deterministic pseudo-random stream: the same seed
	// always produces the same trace.
	Seed int64
	// NumBlocks is how many basic blocks the trace walks through.
	NumBlocks int
	// UopsPerBlock bounds how many uops each generated block carries.
	UopsPerBlock int
	// BranchProbability is the chance, in [0,1], that a block ends in a
	// conditional branch event whose taken target is this or an earlier
	// block. The direction is drawn at random, and the generated walk
	// always continues with the next block either way.
	BranchProbability float64
}

// DefaultSyntheticConfig returns a modestly sized, branchy configuration
// suitable for a quick CLI smoke run.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Seed:              1,
		NumBlocks:         64,
		UopsPerBlock:      6,
		BranchProbability: 0.3,
	}
}

// GenerateSynthetic stands in for the out-of-scope instrumentation
// front-end: it fabricates a deterministic, program-order Event stream
// of Bbl, Load, Store and Branch events (no predicated loads or stores),
// suitable for driving a Core
// end-to-end without a real binary trace.
func GenerateSynthetic(cfg SyntheticConfig) []Event {
	if cfg.NumBlocks <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	events := make([]Event, 0, cfg.NumBlocks*(cfg.UopsPerBlock+2))

	for i := 0; i < cfg.NumBlocks; i++ {
		addr := uint64(0x1000 + i*0x40)
		info := &bbl.BblInfo{
			Instrs: uint64(1 + rng.Intn(3)),
			Bytes:  16,
		}

		numLoads, numStores := 0, 0
		var reg uint8 = 1
		for u := 0; u < cfg.UopsPerBlock; u++ {
			uop := bbl.DynUop{
				DecCycle: uint64(u),
				Lat:      uint64(1 + rng.Intn(3)),
				PortMask: 1 << uint(rng.Intn(4)),
			}

			switch rng.Intn(5) {
			case 0:
				uop.Type = bbl.UopLoad
				numLoads++
			case 1:
				uop.Type = bbl.UopStore
				numStores++
			default:
				uop.Type = bbl.UopGeneral
				uop.Rd[0] = reg
				if reg > 1 {
					uop.Rs[0] = reg - 1
				}
				reg++
				if reg == 0 {
					reg = 1
				}
			}
			info.Bbl.Uops = append(info.Bbl.Uops, uop)
		}

		events = append(events, Event{Kind: EventBbl, BblAddr: addr, Instrs: info.Instrs, Info: info})

		for l := 0; l < numLoads; l++ {
			events = append(events, Event{Kind: EventLoad, Addr: addr + uint64(l*8)})
		}
		for s := 0; s < numStores; s++ {
			events = append(events, Event{Kind: EventStore, Addr: addr + uint64(s*8) + 0x800})
		}

		if i < cfg.NumBlocks-1 && rng.Float64() < cfg.BranchProbability {
			taken := rng.Intn(2) == 0
			target := uint64(0x1000 + rng.Intn(i+1)*0x40)
			fallthroughAddr := uint64(0x1000 + (i+1)*0x40)
			events = append(events, Event{
				Kind:        EventBranch,
				PC:          addr,
				Taken:       taken,
				TakenNpc:    target,
				NotTakenNpc: fallthroughAddr,
			})
		}
	}

	return events
}
