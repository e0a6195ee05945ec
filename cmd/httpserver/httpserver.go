// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-abel/nile-bank/internal/accountdelivery"
	"github.com/go-abel/nile-bank/internal/accountrepo"
	"github.com/go-abel/nile-bank/internal/accountservice"
	"github.com/go-abel/nile-bank/internal/ledgerdelivery"
	"github.com/go-abel/nile-bank/internal/ledgerrepo"
	"github.com/go-abel/nile-bank/internal/ledgerservice"
	"github.com/go-abel/nile-bank/internal/middleware"
	"github.com/go-abel/nile-bank/internal/notification"
	"github.com/go-abel/nile-bank/internal/sessiondelivery"
	"github.com/go-abel/nile-bank/internal/sessionrepo"
	"github.com/go-abel/nile-bank/internal/sessionservice"
	"github.com/go-abel/nile-bank/pkg/configpkg"
	"github.com/go-abel/nile-bank/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	accountRepo := accountrepo.NewRepoPGS(conn)
	sessionRepo := sessionrepo.NewRepoPGS(conn)
	ledgerStore := ledgerrepo.NewStorePGS(conn)

	tokenMaker, err := tokenpkg.NewPasetoMaker(config.TokenSymmetricKey)
	if err != nil {
		return nil, errors.New("cannot create token maker")
	}

	settlementMaker, err := tokenpkg.NewPasetoMaker(config.SettlementSymmetricKey)
	if err != nil {
		return nil, errors.New("cannot create settlement token maker")
	}

	mailer := notification.NewSMTPSender(
		config.SMTPHost,
		config.SMTPPort,
		config.SMTPUsername,
		config.SMTPPassword,
	)

	accountService := accountservice.New(accountRepo)
	sessionService := sessionservice.New(sessionRepo, config, tokenMaker)
	ledgerService := ledgerservice.New(
		ledgerStore,
		ledgerservice.NewTokenSettlement(settlementMaker),
		notification.NewEmailNotifier(mailer),
	)

	accountHandler := accountdelivery.NewHandler(accountService, sessionService)
	sessionHandler := sessiondelivery.NewHandler(sessionService)
	ledgerHandler := ledgerdelivery.NewHandler(ledgerService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.POST("/accounts", accountHandler.Register)
	engine.POST("/accounts/login", accountHandler.Login)
	engine.POST("/sessions", sessionHandler.RenewAccessToken)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.GET("/accounts/me", accountHandler.Me)
	authRoutes.POST("/accounts/pin", accountHandler.SetPin)
	authRoutes.POST("/accounts/card", accountHandler.IssueCard)

	authRoutes.POST("/transactions/deposit", ledgerHandler.Deposit)
	authRoutes.POST("/transactions/withdraw", ledgerHandler.Withdraw)
	authRoutes.POST("/transactions/transfer", ledgerHandler.Transfer)
	authRoutes.POST("/transactions/external-transfer", ledgerHandler.ExternalTransfer)
	authRoutes.GET("/transactions", ledgerHandler.ListTransactions)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("pin", accountdelivery.ValidPin); err != nil {
			return nil, errors.New("cannot register pin validator")
		}

		if err := v.RegisterValidation("accnumber", accountdelivery.ValidAccountNumber); err != nil {
			return nil, errors.New("cannot register account number validator")
		}
	}

	server := &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
