package inbound

import (
	"context"

	"github.com/shandysiswandi/gopasscode/internal/passcode/usecase"
	"github.com/shandysiswandi/gopasscode/internal/pkg/router"
	"github.com/shandysiswandi/gopasscode/internal/pkg/validator"
)

type uc interface {
	RequestCode(ctx context.Context, in usecase.RequestCodeInput) (*usecase.RequestCodeOutput, error)
	VerifyCode(ctx context.Context, in usecase.VerifyCodeInput) (*usecase.VerifyCodeOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, v validator.Validator, uc uc) {
	end := &HTTPEndpoint{uc: uc, validator: v}

	r.POST("/api/v1/passcode/request", end.RequestCode)
	r.POST("/api/v1/passcode/verify", end.VerifyCode)
}
