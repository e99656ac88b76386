// Package latency provides a per-instruction cycle cost model for
// Y86-64 programs.
//
// The model is a static table keyed by operation variant; it does not
// simulate pipelining or caches. Costs can be configured via
// TimingConfig.
package latency

import (
	"github.com/sarchlab/y86sim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a latency table with a custom timing
// configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}

// ForOp returns the execution latency in cycles for one operation
// variant.
func (t *Table) ForOp(op insts.Op) uint64 {
	switch op {
	case insts.OpOpq:
		return t.config.ALULatency

	case insts.OpMrmovq:
		return t.config.LoadLatency

	case insts.OpRmmovq:
		return t.config.StoreLatency

	case insts.OpJxx:
		return t.config.BranchLatency

	case insts.OpCall, insts.OpPushq:
		// One stack store plus the transfer.
		return t.config.StoreLatency + t.config.BranchLatency

	case insts.OpRet, insts.OpPopq:
		// One stack load plus the transfer.
		return t.config.LoadLatency + t.config.BranchLatency

	default:
		// halt, nop, register and immediate moves
		return 1
	}
}

// Estimate returns the total cycle estimate for a run, given the
// per-op execution counts reported by the machine.
func (t *Table) Estimate(counts map[insts.Op]uint64) uint64 {
	var total uint64
	for op, n := range counts {
		total += n * t.ForOp(op)
	}
	return total
}
