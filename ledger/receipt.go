package ledger

// 交易执行状态
const (
	ExecutionSucceeded = "SUCCEEDED"
	ExecutionReverted  = "REVERTED"
)

// 交易最终性状态
const (
	FinalityReceived     = "RECEIVED"
	FinalityRejected     = "REJECTED"
	FinalityAcceptedOnL2 = "ACCEPTED_ON_L2"
	FinalityAcceptedOnL1 = "ACCEPTED_ON_L1"
)

// EmittedEvent 收据中的一条原始日志
type EmittedEvent struct {
	FromAddress string   `json:"from_address"`
	Keys        []string `json:"keys"`
	Data        []string `json:"data"`
}

// Receipt 交易收据，仅保留事件解码需要的字段
type Receipt struct {
	TransactionHash string         `json:"transaction_hash"`
	ExecutionStatus string         `json:"execution_status"`
	FinalityStatus  string         `json:"finality_status"`
	RevertReason    string         `json:"revert_reason,omitempty"`
	BlockNumber     uint64         `json:"block_number,omitempty"`
	Events          []EmittedEvent `json:"events"`
}

// Reverted 交易执行被回滚
func (r *Receipt) Reverted() bool {
	return r.ExecutionStatus == ExecutionReverted
}

// Rejected 交易被排序器拒绝
func (r *Receipt) Rejected() bool {
	return r.FinalityStatus == FinalityRejected
}

// Accepted 交易已被 L2 或 L1 接受
func (r *Receipt) Accepted() bool {
	return r.FinalityStatus == FinalityAcceptedOnL2 || r.FinalityStatus == FinalityAcceptedOnL1
}
