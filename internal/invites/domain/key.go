package domain

// KeyStatus describes the result of a reward key request.
type KeyStatus int

const (
	KeyNotEligible KeyStatus = iota + 1
	KeyIssued                // generated and stored by this request
	KeyExisting              // already stored before this request
)

func (s KeyStatus) String() string {
	switch s {
	case KeyNotEligible:
		return "not_eligible"
	case KeyIssued:
		return "issued"
	case KeyExisting:
		return "existing"
	default:
		return "unknown"
	}
}

type KeyResult struct {
	Status      KeyStatus
	Key         string // empty when not eligible
	DisplayName string
	InviteCount int
	Remaining   int
}

// Eligible reports whether the result carries a key.
func (r KeyResult) Eligible() bool {
	return r.Status == KeyIssued || r.Status == KeyExisting
}
