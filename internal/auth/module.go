// Package auth provides operator authentication: a bootstrap admin account
// and password login that issues the JWT the protected API requires.
package auth

import (
	"context"

	"outreach_backend/internal/auth/handler"
	"outreach_backend/internal/auth/repository"
	"outreach_backend/internal/auth/service"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

func NewModule(ctx context.Context, pool *pgxpool.Pool, cfg config.AuthServiceConfig, val *validator.Validator, log *logger.Logger) (*Module, error) {
	svc := service.New(repository.New(pool), cfg, log)
	if err := svc.Bootstrap(ctx, cfg); err != nil {
		return nil, err
	}

	return &Module{
		handler: handler.New(svc, val),
		svc:     svc,
	}, nil
}

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	m.handler.RegisterRoutes(rc.V1.Group("/auth"))
}

func (m *Module) Name() string { return "auth" }
