package postpone_allocation

// PostponeAllocationRequest HTTP request model
type PostponeAllocationRequest struct {
	Start  string `json:"start"` // RFC3339
	End    string `json:"end"`   // RFC3339
	Reason string `json:"reason"`
}
