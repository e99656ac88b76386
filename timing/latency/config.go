package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds latency values for the instruction classes.
type TimingConfig struct {
	// ALULatency is the execution latency for OPq instructions.
	// Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the base latency for control transfers
	// (jXX, call, ret). Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// LoadLatency is the latency for memory reads (mrmovq, popq,
	// ret stack read). Default: 4 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the latency for memory writes (rmmovq,
	// pushq, call stack write). Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`
}

// DefaultTimingConfig returns the default timing values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:    1,
		BranchLatency: 1,
		LoadLatency:   4,
		StoreLatency:  1,
	}
}

// LoadConfig reads a timing configuration from a JSON file. Fields
// absent from the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}
