package model

// ConfidenceBand buckets a match score for acceptance gating.
type ConfidenceBand string

// Confidence bands.
const (
	ConfidenceHigh   ConfidenceBand = "HIGH"
	ConfidenceMedium ConfidenceBand = "MEDIUM"
	ConfidenceLow    ConfidenceBand = "LOW"
)

// Band boundaries are exclusive: a score must exceed them.
const (
	HighBandThreshold   = 500.0
	MediumBandThreshold = 200.0
)

// BandFor returns the confidence band of a score.
func BandFor(score float64) ConfidenceBand {
	switch {
	case score > HighBandThreshold:
		return ConfidenceHigh
	case score > MediumBandThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// MatchCandidate is the best scoring pairing of an asset with a record.
type MatchCandidate struct {
	Band      ConfidenceBand
	Rationale []string
	Record    ContentRecord
	Asset     Asset
	Score     float64
}

// Outcome is the result of reconciling or migrating one asset.
type Outcome string

// Decision outcomes.
const (
	OutcomeAccept                  Outcome = "ACCEPT"
	OutcomeRejectLowConfidence     Outcome = "REJECT_LOW_CONFIDENCE"
	OutcomeRejectAlreadyAssociated Outcome = "REJECT_ALREADY_ASSOCIATED"
	OutcomeRejectNoCandidate       Outcome = "REJECT_NO_CANDIDATE"
)

// Failure outcomes are only written to the ledger when an accepted
// decision could not be carried out.
const (
	OutcomeFailedFetch       Outcome = "FAILED_FETCH"
	OutcomeFailedTransfer    Outcome = "FAILED_TRANSFER"
	OutcomeFailedAssociation Outcome = "FAILED_ASSOCIATION"
)

// IsFailure reports whether the outcome represents a failed side effect.
func (o Outcome) IsFailure() bool {
	switch o {
	case OutcomeFailedFetch, OutcomeFailedTransfer, OutcomeFailedAssociation:
		return true
	}
	return false
}

// IsRejection reports whether the outcome is a reconciliation rejection.
func (o Outcome) IsRejection() bool {
	switch o {
	case OutcomeRejectLowConfidence, OutcomeRejectAlreadyAssociated, OutcomeRejectNoCandidate:
		return true
	}
	return false
}

// Decision is what the reconciliation engine concluded for one asset.
// Record is nil for REJECT_NO_CANDIDATE.
type Decision struct {
	Record    *ContentRecord
	Candidate *MatchCandidate
	Outcome   Outcome
	Asset     Asset
}
