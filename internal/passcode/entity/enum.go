package entity

// Outcome classifies the result of RequestCode and VerifyCode.
type Outcome int8

const (
	OutcomeUnknown Outcome = iota
	// OutcomeIssued means a fresh code was stored and handed to the notifier.
	OutcomeIssued
	// OutcomeThrottled means a fresh-enough code exists; nothing changed.
	OutcomeThrottled
	// OutcomeVerified means the candidate matched and the record was consumed.
	OutcomeVerified
	OutcomeNotFound
	OutcomeExpired
	// OutcomeAttemptsExhausted means the attempt budget was spent before this try.
	OutcomeAttemptsExhausted
	// OutcomeMismatch means the candidate was wrong; the record stays with one attempt used.
	OutcomeMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIssued:
		return "issued"
	case OutcomeThrottled:
		return "throttled"
	case OutcomeVerified:
		return "verified"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeExpired:
		return "expired"
	case OutcomeAttemptsExhausted:
		return "attempts_exhausted"
	case OutcomeMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// DeliveryMode selects whether RequestCode waits for the notifier.
type DeliveryMode string

const (
	DeliveryModeSync  DeliveryMode = "sync"
	DeliveryModeAsync DeliveryMode = "async"
)

// ParseDeliveryMode falls back to sync for anything unrecognized.
func ParseDeliveryMode(s string) DeliveryMode {
	if DeliveryMode(s) == DeliveryModeAsync {
		return DeliveryModeAsync
	}
	return DeliveryModeSync
}
