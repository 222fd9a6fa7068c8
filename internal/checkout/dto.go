package checkout

// CheckItem is one (price, quantity) pair sent for revalidation.
// Quantity rules live in the service so every transport reports them
// through the same per-price messages.
type CheckItem struct {
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

// ItemError carries the per-field messages for one price id.
type ItemError struct {
	Price    string `json:"price,omitempty"`
	Quantity string `json:"quantity,omitempty"`
}

// ValidationErrors maps a price id to its field errors.
type ValidationErrors map[string]ItemError

// Empty reports whether validation passed.
func (v ValidationErrors) Empty() bool {
	return len(v) == 0
}
