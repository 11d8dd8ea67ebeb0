package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskClosureChainScan looks for elapsed periods with ledger activity
	// that were never closed.
	TaskClosureChainScan = "closure:chain_scan"
)

// ChainScanPayload bounds the scan window for a chain integrity run.
type ChainScanPayload struct {
	// LookbackMonths limits how far back the scan inspects ledger activity.
	LookbackMonths int `json:"lookback_months"`
	// TaxpayerID restricts the scan to a single taxpayer when set.
	TaxpayerID string `json:"taxpayer_id,omitempty"`
}

// NewChainScanTask constructs an Asynq task for the chain integrity scan.
func NewChainScanTask(payload ChainScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClosureChainScan, data), nil
}
