package respond_proposal

// RespondRequest HTTP request model
type RespondRequest struct {
	Accept bool `json:"accept"`
}
