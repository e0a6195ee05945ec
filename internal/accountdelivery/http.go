// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-abel/nile-bank/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-abel/nile-bank/internal/domain"
	"github.com/go-abel/nile-bank/pkg/errorspkg"
	"github.com/go-abel/nile-bank/pkg/tokenpkg"
	"github.com/go-abel/nile-bank/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Register(ctx context.Context, name, email, password string) (domain.AccountProfile, error)
	Authenticate(ctx context.Context, identifier, password string) (domain.AccountProfile, error)
	Get(ctx context.Context, id int32) (domain.AccountProfile, error)
	SetPin(ctx context.Context, id int32, pin string) error
	IssueCard(ctx context.Context, id int32) (domain.VirtualCard, error)
}

// SessionStarter issues the token pair for a freshly authenticated account.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type SessionStarter interface {
	Start(ctx context.Context, arg domain.CreateSessionParams) (string, time.Time, domain.Session, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service  Service
	sessions SessionStarter
}

// NewHandler returns account handler.
func NewHandler(as Service, ss SessionStarter) Handler {
	return Handler{
		service:  as,
		sessions: ss,
	}
}

// startSession issues the token pair and builds the common auth response.
func (h *Handler) startSession(gctx *gin.Context, profile domain.AccountProfile) (web.Response, error) {
	ctx := gctx.Request.Context()

	arg := domain.CreateSessionParams{
		AccountID:     profile.ID,
		AccountNumber: profile.AccountNumber,
		UserAgent:     gctx.Request.UserAgent(),
		ClientIP:      gctx.ClientIP(),
	}

	accessToken, accessExpiresAt, sess, err := h.sessions.Start(ctx, arg)
	if err != nil {
		return web.Response{}, err
	}

	return web.Response{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExpiresAt.Format(time.RFC3339),
		RefreshToken:          sess.RefreshToken,
		RefreshTokenExpiresAt: sess.ExpiresAt.Format(time.RFC3339),
		Data:                  data{profile},
	}, nil
}

type data struct {
	Account domain.AccountProfile `json:"account"`
}
type response struct {
	Data data `json:"data,omitempty"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register handles http request to register an account.
func (h *Handler) Register(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(gctx)

	var req registerRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		var (
			ve     validator.ValidationErrors
			errMsg string
		)

		if errors.As(err, &ve) {
			field := ve[0]
			errMsg = field.Field() + web.GetErrorMsg(field)
		}

		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})

		return
	}

	profile, err := h.service.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			gctx.JSON(http.StatusConflict, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	res, err := h.startSession(gctx, profile)
	if err != nil {
		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, res)
}

type loginRequest struct {
	// Identifier is the account number or email of the account.
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// Login handles http request to authenticate and issue an access token.
func (h *Handler) Login(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(gctx)

	var req loginRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		var (
			ve     validator.ValidationErrors
			errMsg string
		)

		if errors.As(err, &ve) {
			field := ve[0]
			errMsg = field.Field() + web.GetErrorMsg(field)
		}

		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})

		return
	}

	profile, err := h.service.Authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			gctx.JSON(http.StatusUnauthorized, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	res, err := h.startSession(gctx, profile)
	if err != nil {
		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, res)
}

// Me handles http request to get the authenticated account's profile.
func (h *Handler) Me(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	profile, err := h.service.Get(ctx, authPayload.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	res := response{
		Data: data{profile},
	}

	gctx.JSON(http.StatusOK, res)
}

type setPinRequest struct {
	Pin string `json:"pin" binding:"required,pin"`
}

type messageData struct {
	Message string `json:"message"`
}
type messageResponse struct {
	Data messageData `json:"data,omitempty"`
}

// SetPin handles http request to set the transaction PIN.
func (h *Handler) SetPin(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(gctx)

	var req setPinRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		var (
			ve     validator.ValidationErrors
			errMsg string
		)

		if errors.As(err, &ve) {
			field := ve[0]
			errMsg = field.Field() + web.GetErrorMsg(field)
		}

		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	if err := h.service.SetPin(ctx, authPayload.AccountID, req.Pin); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	res := messageResponse{
		Data: messageData{Message: "transaction pin set"},
	}

	gctx.JSON(http.StatusOK, res)
}

type cardData struct {
	Card domain.VirtualCard `json:"card"`
}
type cardResponse struct {
	Data cardData `json:"data,omitempty"`
}

// IssueCard handles http request to issue a virtual card.
func (h *Handler) IssueCard(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	card, err := h.service.IssueCard(ctx, authPayload.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	res := cardResponse{
		Data: cardData{Card: card},
	}

	gctx.JSON(http.StatusOK, res)
}
