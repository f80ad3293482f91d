package propose_reassignment

// ProposeRequest HTTP request model
type ProposeRequest struct {
	CandidateResourceIDs []string `json:"candidateResourceIds"`
}
