package inbound

import (
	"github.com/shandysiswandi/gopasscode/internal/passcode/entity"
	"github.com/shandysiswandi/gopasscode/internal/passcode/usecase"
	"github.com/shandysiswandi/gopasscode/internal/pkg/goerror"
	"github.com/shandysiswandi/gopasscode/internal/pkg/router"
	"github.com/shandysiswandi/gopasscode/internal/pkg/validator"
)

// HTTPEndpoint exposes the passcode request and verification handlers.
type HTTPEndpoint struct {
	uc        uc
	validator validator.Validator
}

// RequestCode issues a login code for an identifier.
// @Summary Request login code
// @Description Issues a one-time code and hands it to the configured notifier. When delivery fails the code is returned in the body (degraded mode).
// @Tags Passcode
// @Accept json
// @Produce json
// @Param request body RequestCodeRequest true "Request payload"
// @Success 200 {object} router.successResponse{data=RequestCodeResponse} "Code issued"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "A recent code is still valid"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/passcode/request [post]
func (h *HTTPEndpoint) RequestCode(r *router.Request) (any, error) {
	var req RequestCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}
	if err := h.validator.Validate(req); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	resp, err := h.uc.RequestCode(r.Context(), usecase.RequestCodeInput{
		Identifier: req.Identifier,
	})
	if err != nil {
		return nil, err
	}

	if resp.Outcome == entity.OutcomeThrottled {
		return nil, goerror.NewBusiness(resp.Message, goerror.CodeTooManyRequest)
	}

	return RequestCodeResponse{
		DeliveryOK:      resp.DeliveryOK,
		DeliveryPending: resp.DeliveryPending,
		TTLSeconds:      resp.TTLSeconds,
		Code:            resp.FallbackCode,
		msg:             resp.Message,
	}, nil
}

// VerifyCode checks a login code.
// @Summary Verify login code
// @Description Consumes the active code when it matches. Every try counts against the attempt budget.
// @Tags Passcode
// @Accept json
// @Produce json
// @Param request body VerifyCodeRequest true "Verify payload"
// @Success 200 {object} router.successResponse{data=VerifyCodeResponse} "Code verified"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Code rejected"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/passcode/verify [post]
func (h *HTTPEndpoint) VerifyCode(r *router.Request) (any, error) {
	var req VerifyCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}
	if err := h.validator.Validate(req); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	resp, err := h.uc.VerifyCode(r.Context(), usecase.VerifyCodeInput{
		Identifier: req.Identifier,
		Code:       req.Code,
	})
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, goerror.NewBusiness(resp.Message, goerror.CodeUnauthorized)
	}

	return VerifyCodeResponse{Verified: true, msg: resp.Message}, nil
}
