package cancel_allocation

// CancelAllocationRequest HTTP request model
type CancelAllocationRequest struct {
	Reason string `json:"reason"`
}
