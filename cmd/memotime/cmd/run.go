package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sarchlab/memotime/simctx"
	"github.com/sarchlab/memotime/timing/cache"
	"github.com/sarchlab/memotime/timing/core"
	"github.com/sarchlab/memotime/trace"
)

var (
	runModel        string
	runNumBlocks    int
	runUopsPerBlock int
	runSeed         int64
	runBranchProb   float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a synthetic instruction trace through one timing model and report stats.",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runModel, "model", "issue", "timing model to drive: cache, fetch, or issue")
	runCmd.Flags().IntVar(&runNumBlocks, "blocks", 256, "number of synthetic basic blocks to generate")
	runCmd.Flags().IntVar(&runUopsPerBlock, "uops-per-block", 6, "uops generated per basic block")
	runCmd.Flags().Int64Var(&runSeed, "seed", 1, "synthetic trace generator seed")
	runCmd.Flags().Float64Var(&runBranchProb, "branch-prob", 0.3, "probability a block ends in a conditional branch")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	params := core.DefaultOOOParams()
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid OOO params: %w", err)
	}

	events := trace.GenerateSynthetic(trace.SyntheticConfig{
		Seed:              runSeed,
		NumBlocks:         runNumBlocks,
		UopsPerBlock:      runUopsPerBlock,
		BranchProbability: runBranchProb,
	})

	c, funcs, err := buildModel(runModel, params)
	if err != nil {
		return err
	}

	// A single-core SimulationContext still exercises the join/leave and
	// cSimStart/cSimEnd contention-recorder wiring (spec.md: "advance is
	// only called from cSimStart/cSimEnd/join"), even though its barrier
	// trivially self-releases every phase with just one registered core.
	ctx := simctx.New(1, params.PhaseLength, params.LineBits)
	ctx.RegisterCore(0, c)
	ctx.CSimStart()

	player := trace.NewPlayer(0, funcs)
	slog.Debug("driving synthetic trace", "model", runModel, "blocks", runNumBlocks, "events", len(events))
	if err := player.Run(events); err != nil {
		return err
	}

	ctx.CSimEnd()
	ctx.UnregisterCore(0)

	fmt.Printf("model:      %s\n", runModel)
	fmt.Printf("cycles:     %d\n", c.GetCycles())
	fmt.Printf("instrs:     %d\n", c.GetInstrs())
	fmt.Printf("distinct bbls: %d\n", player.Len())
	if c.GetInstrs() > 0 {
		fmt.Printf("cpi:        %.3f\n", float64(c.GetCycles())/float64(c.GetInstrs()))
	}

	return nil
}

// buildModel constructs the requested Core and its driving InstrFuncPtrs.
// IssueModel's own LoadFunc/StoreFunc are stubs (see DESIGN.md); this layers
// its Record* address-buffer entry points in their place, the composition
// the source's IssueModel is documented to expect from a caller.
func buildModel(model string, params core.OOOParams) (core.Core, core.InstrFuncPtrs, error) {
	switch model {
	case "cache":
		l1d := cache.NewFilterCache(cache.DefaultL1DConfig())
		cm := core.NewCacheModel(0, params, l1d)
		return cm, cm.GetFuncPtrs(), nil

	case "fetch":
		l1i := cache.NewFilterCache(cache.DefaultL1IConfig())
		fm := core.NewFetchModel(0, params, l1i)
		return fm, fm.GetFuncPtrs(), nil

	case "issue":
		im := core.NewIssueModel(0, params)
		funcs := im.GetFuncPtrs()
		funcs.LoadFunc = func(_ int, addr uint64) { im.RecordLoad(addr) }
		funcs.StoreFunc = func(_ int, addr uint64) { im.RecordStore(addr) }
		funcs.PredLoadFunc = func(_ int, addr uint64, pred bool) { im.RecordPredLoad(addr, pred) }
		funcs.PredStoreFunc = func(_ int, addr uint64, pred bool) { im.RecordPredStore(addr, pred) }
		return im, funcs, nil

	default:
		return nil, core.InstrFuncPtrs{}, fmt.Errorf("unrecognised model %q: want cache, fetch, or issue", model)
	}
}
