package collect

// OutcomeKind classifies a single step.
type OutcomeKind int

const (
	// OutcomeSuccess means the page was fetched and parsed.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeEmpty means the fetch succeeded with no content.
	OutcomeEmpty
	// OutcomeFailure means the fetch failed after retries.
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one fetch+extract step.
type Outcome[R any] struct {
	Kind    OutcomeKind
	Records []R
	Next    string
	Skipped int
	Err     error
}
