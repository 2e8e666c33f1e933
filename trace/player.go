package trace

import (
	"fmt"

	"github.com/sarchlab/memotime/bbl"
	"github.com/sarchlab/memotime/timing/core"
)

// Player drives one thread's recorded Events through a Core's callback set
// in program order, owning the bbl.Map decode cache the real instrumentation
// front-end would own.
type Player struct {
	tid    int
	funcs  core.InstrFuncPtrs
	blocks *bbl.Map
}

// NewPlayer builds a Player for tid driving funcs, the callback set handed
// out for that thread (by a Core directly, or by a
// simctx.SimulationContext's tid-dispatching trampolines).
func NewPlayer(tid int, funcs core.InstrFuncPtrs) *Player {
	return &Player{
		tid:    tid,
		funcs:  funcs,
		blocks: bbl.NewMap(),
	}
}

// Len reports how many distinct basic blocks this player has cached.
func (p *Player) Len() int { return p.blocks.Len() }

// Run replays events in order, returning an error if a Bbl event references
// a block Info was never supplied for.
func (p *Player) Run(events []Event) error {
	for i := range events {
		if err := p.step(&events[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Player) step(e *Event) error {
	switch e.Kind {
	case EventLoad:
		p.funcs.LoadFunc(p.tid, e.Addr)
	case EventStore:
		p.funcs.StoreFunc(p.tid, e.Addr)
	case EventPredLoad:
		p.funcs.PredLoadFunc(p.tid, e.Addr, e.Pred)
	case EventPredStore:
		p.funcs.PredStoreFunc(p.tid, e.Addr, e.Pred)
	case EventBranch:
		p.funcs.BranchFunc(p.tid, e.PC, e.Taken, e.TakenNpc, e.NotTakenNpc)
	case EventBbl:
		info, err := p.resolveBbl(e)
		if err != nil {
			return err
		}
		p.funcs.BblFunc(p.tid, e.BblAddr, info)
	default:
		return fmt.Errorf("trace: unrecognised event kind %d", e.Kind)
	}
	return nil
}

func (p *Player) resolveBbl(e *Event) (*bbl.BblInfo, error) {
	if e.Info != nil {
		key := e.Info.Key(e.BblAddr)
		p.blocks.Insert(key, e.Info)
		return e.Info, nil
	}

	key := bbl.BasicBlockKey{Addr: e.BblAddr, Instrs: e.Instrs}
	info := p.blocks.Lookup(key)
	if info == nil {
		return nil, fmt.Errorf(
			"trace: bbl at 0x%x (instrs=%d) played with no Info and none cached",
			e.BblAddr, e.Instrs)
	}
	return info, nil
}
