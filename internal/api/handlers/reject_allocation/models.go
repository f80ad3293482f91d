package reject_allocation

// RejectAllocationRequest HTTP request model
type RejectAllocationRequest struct {
	Reason string `json:"reason"`
}
