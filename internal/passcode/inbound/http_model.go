package inbound

// Identifiers are bounded here; the usecase treats them as opaque keys.
type RequestCodeRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
}

type RequestCodeResponse struct {
	DeliveryOK      bool `json:"delivery_ok"`
	DeliveryPending bool `json:"delivery_pending"`
	TTLSeconds      int  `json:"ttl_seconds"`
	// Code is only present when delivery failed; see RequestCodeOutput.FallbackCode.
	Code string `json:"code,omitempty"`

	msg string
}

func (r RequestCodeResponse) Message() string {
	return r.msg
}

type VerifyCodeRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Code       string `json:"code"`
}

type VerifyCodeResponse struct {
	Verified bool `json:"verified"`

	msg string
}

func (r VerifyCodeResponse) Message() string {
	return r.msg
}
