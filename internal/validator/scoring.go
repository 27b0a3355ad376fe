package validator

import "vetdesk/internal/models"

// Signals is everything the checker learned about one address.
type Signals struct {
	FormatOK     bool
	HasMX        bool
	MXChecked    bool
	Disposable   bool
	Role         bool
	Typo         bool
	Suspicious   bool
	SpamKeywords bool
	Parked       bool
}

// Reason codes attached to a result.
const (
	ReasonInvalidFormat = "invalid_format"
	ReasonDisposable    = "disposable_domain"
	ReasonNoMX          = "no_mx_records"
	ReasonParked        = "parked_domain"
	ReasonRole          = "role_account"
	ReasonTypo          = "possible_typo"
	ReasonSuspicious    = "suspicious_pattern"
	ReasonSpam          = "spam_keywords"
)

// Penalties applied to a well-formed, deliverable address.
const (
	penaltyRole       = 20
	penaltyTypo       = 40
	penaltySuspicious = 25
	penaltySpam       = 30
	penaltyParked     = 50
)

// CalculateScore turns signals into a 0-100 score, the valid flag and the
// reasons behind every deduction.
func CalculateScore(s Signals) (score int, valid bool, reasons []string) {
	reasons = []string{}

	// Hard fails
	if !s.FormatOK {
		return 0, false, append(reasons, ReasonInvalidFormat)
	}
	if s.Disposable {
		return 10, false, append(reasons, ReasonDisposable)
	}
	if s.MXChecked && !s.HasMX {
		return 5, false, append(reasons, ReasonNoMX)
	}

	score = 100
	if s.Parked {
		score -= penaltyParked
		reasons = append(reasons, ReasonParked)
	}
	if s.Role {
		score -= penaltyRole
		reasons = append(reasons, ReasonRole)
	}
	if s.Typo {
		score -= penaltyTypo
		reasons = append(reasons, ReasonTypo)
	}
	if s.Suspicious {
		score -= penaltySuspicious
		reasons = append(reasons, ReasonSuspicious)
	}
	if s.SpamKeywords {
		score -= penaltySpam
		reasons = append(reasons, ReasonSpam)
	}

	if score < 0 {
		score = 0
	}
	return score, score >= models.RiskyScoreMin, reasons
}
