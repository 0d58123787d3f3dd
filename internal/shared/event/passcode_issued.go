package event

const PasscodeIssuedDestination string = "passcode_issued"
const PasscodeIssuedConsumerDelivery string = "passcode_issued_delivery"

// PasscodeIssuedMessage asks the delivery worker to send a freshly issued
// code. CorrelationID duplicates the cID header for brokers without headers.
// ExpiresAt is unix seconds; workers drop the event once it has passed.
type PasscodeIssuedMessage struct {
	ID            int64  `json:"id" validate:"required"`
	Identifier    string `json:"identifier" validate:"required,email"`
	Code          string `json:"code" validate:"required,passcode"`
	TTLSeconds    int    `json:"ttl_seconds" validate:"gt=0"`
	ExpiresAt     int64  `json:"expires_at" validate:"gt=0"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
