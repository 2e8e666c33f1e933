package core

import "fmt"

// OOOParams configures the structural-hazard widths of the timing models.
// Configuration parsing itself is out of scope for the core; callers are
// expected to build one of these from flags, a config file, or a test
// fixture and pass it to a model constructor.
type OOOParams struct {
	// Width is the issue width (uops issued per cycle).
	Width int
	// PrfPorts is the number of physical register file read ports.
	PrfPorts int
	// RobCap is the reorder buffer capacity.
	RobCap int
	// InsWinCap is the instruction window capacity.
	InsWinCap int
	// IssueQueueCap is the uop issue-queue capacity.
	IssueQueueCap int
	// LoadQueueCap is the load queue capacity.
	LoadQueueCap int
	// StoreQueueCap is the store queue capacity.
	StoreQueueCap int
	// FetchBytesPerCycle bounds per-cycle instruction-fetch bandwidth.
	FetchBytesPerCycle int
	// TageNumTables is the number of tagged TAGE tables, at most 8.
	TageNumTables int
	// TageIndexSize is the per-table tagged-entry index width, in bits.
	TageIndexSize uint8
	// LineBits is log2 of the instruction-cache line size.
	LineBits uint
	// PhaseLength is the number of cycles between successive barrier
	// rendezvous points.
	PhaseLength uint64
}

// DefaultOOOParams returns a Nehalem/Westmere-scale configuration: width 4,
// two RF read ports, a 128-entry ROB, a 36-entry issue queue feeding a
// 128-entry instruction window, 48/32-entry load/store queues, 16 B/cycle
// fetch, and an 8-table TAGE predictor with 12-bit tagged indices.
func DefaultOOOParams() OOOParams {
	return OOOParams{
		Width:              4,
		PrfPorts:           2,
		RobCap:             128,
		InsWinCap:          128,
		IssueQueueCap:      36,
		LoadQueueCap:       48,
		StoreQueueCap:      32,
		FetchBytesPerCycle: 16,
		TageNumTables:      8,
		TageIndexSize:      12,
		LineBits:           6,
		PhaseLength:        10_000_000,
	}
}

// Validate re-enables the capacity-ordering assertions the source carried
// but compiled out: rob_cap ≥ ins_win_cap ≥ issue_queue_cap ≥ width,
// ins_win_cap ≥ load_queue_cap, ins_win_cap ≥ store_queue_cap. A violation
// is caller-input error, not an internal invariant violation, so it is
// returned rather than panicked.
func (p OOOParams) Validate() error {
	switch {
	case p.Width <= 0:
		return fmt.Errorf("ooo params: width must be positive, got %d", p.Width)
	case p.RobCap < p.InsWinCap:
		return fmt.Errorf("ooo params: rob_cap (%d) must be >= ins_win_cap (%d)", p.RobCap, p.InsWinCap)
	case p.InsWinCap < p.IssueQueueCap:
		return fmt.Errorf("ooo params: ins_win_cap (%d) must be >= issue_queue_cap (%d)", p.InsWinCap, p.IssueQueueCap)
	case p.IssueQueueCap < p.Width:
		return fmt.Errorf("ooo params: issue_queue_cap (%d) must be >= width (%d)", p.IssueQueueCap, p.Width)
	case p.InsWinCap < p.LoadQueueCap:
		return fmt.Errorf("ooo params: ins_win_cap (%d) must be >= load_queue_cap (%d)", p.InsWinCap, p.LoadQueueCap)
	case p.InsWinCap < p.StoreQueueCap:
		return fmt.Errorf("ooo params: ins_win_cap (%d) must be >= store_queue_cap (%d)", p.InsWinCap, p.StoreQueueCap)
	case p.TageNumTables > 8:
		return fmt.Errorf("ooo params: tage_num_tables must be <= 8, got %d", p.TageNumTables)
	case p.TageIndexSize > 64:
		return fmt.Errorf("ooo params: tage_index_size must be <= 64, got %d", p.TageIndexSize)
	}
	return nil
}
