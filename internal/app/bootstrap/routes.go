// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"

	authgooglefeature "github.com/dalemusser/crushnote/internal/app/features/authgoogle"
	crushfeature "github.com/dalemusser/crushnote/internal/app/features/crush"
	errorsfeature "github.com/dalemusser/crushnote/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/crushnote/internal/app/features/groups"
	healthfeature "github.com/dalemusser/crushnote/internal/app/features/health"
	lettersfeature "github.com/dalemusser/crushnote/internal/app/features/letters"
	profilefeature "github.com/dalemusser/crushnote/internal/app/features/profile"
	"github.com/dalemusser/crushnote/internal/app/services/crushsvc"
	"github.com/dalemusser/crushnote/internal/app/services/groupsvc"
	"github.com/dalemusser/crushnote/internal/app/services/lettersvc"
	"github.com/dalemusser/crushnote/internal/app/services/profilesvc"
	crushstore "github.com/dalemusser/crushnote/internal/app/store/crushes"
	groupstore "github.com/dalemusser/crushnote/internal/app/store/groups"
	letterstore "github.com/dalemusser/crushnote/internal/app/store/letters"
	"github.com/dalemusser/crushnote/internal/app/store/oauthstate"
	quotastore "github.com/dalemusser/crushnote/internal/app/store/quotas"
	userstore "github.com/dalemusser/crushnote/internal/app/store/users"
	"github.com/dalemusser/crushnote/internal/app/system/auth"
	"github.com/dalemusser/crushnote/internal/app/system/metrics"
	"github.com/dalemusser/crushnote/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// loginPerMinute bounds login attempts per client IP.
const loginPerMinute = 5

// BuildHandler constructs the root HTTP handler.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Stores are built over the shared database, the
// engines over the stores, and each feature router is mounted under its
// path prefix. Authenticated routes share one RequireAuth middleware.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	errLog := errorsfeature.NewErrorLogger(logger)
	cal := appCfg.Calendar()

	tokens, err := auth.NewTokenIssuer(appCfg.TokenSecret, appCfg.TokenIssuer, appCfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}
	cookies, err := auth.NewOAuthCookieStore(appCfg.TokenSecret, coreCfg.Env == "prod")
	if err != nil {
		return nil, fmt.Errorf("oauth cookie store: %w", err)
	}
	requireAuth := auth.RequireAuth(tokens, errLog.AuthFailed)

	apiLimit := ratelimit.New(float64(appCfg.RequestRate), appCfg.RequestBurst).
		Middleware(ratelimit.ClientIP, errLog.TooManyRequests)
	loginLimit := ratelimit.PerMinute(loginPerMinute).
		Middleware(ratelimit.ClientIP, errLog.TooManyRequests)

	// Stores
	users := userstore.New(db)
	groups := groupstore.New(db)
	crushes := crushstore.New(db)
	letters := letterstore.New(db)
	quotas := quotastore.New(db)
	states := oauthstate.New(db)

	// Engines
	profiles := profilesvc.New(users, auth.NewIDTokenVerifier(appCfg.GoogleClientID), tokens, appCfg.Limits, logger)
	groupSvc := groupsvc.New(groups, appCfg.Limits, logger)
	crushSvc := crushsvc.New(crushes, cal, appCfg.Limits, logger)
	letterSvc := lettersvc.New(letters, groups, quotas, cal, appCfg.Limits, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{appCfg.WebURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Probes stay outside the per-IP limiter.
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, logger)))
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(api chi.Router) {
		api.Use(apiLimit)

		api.Mount("/user", profilefeature.Routes(
			profilefeature.NewHandler(profiles, errLog, logger), requireAuth, loginLimit))
		api.Mount("/group", groupsfeature.Routes(
			groupsfeature.NewHandler(groupSvc, errLog, logger), requireAuth))
		api.Mount("/crush", crushfeature.Routes(
			crushfeature.NewHandler(crushSvc, errLog, logger), requireAuth))
		api.Mount("/letter", lettersfeature.Routes(
			lettersfeature.NewHandler(letterSvc, errLog, logger), requireAuth))

		googleHandler := authgooglefeature.NewHandler(profiles, states, cookies,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, appCfg.WebURL, logger)
		api.Mount("/auth/google", loginLimit(authgooglefeature.Routes(googleHandler)))
	})

	r.NotFound(errLog.NotFound)
	r.MethodNotAllowed(errLog.MethodNotAllowed)

	logger.Info("routes mounted",
		zap.String("web_url", appCfg.WebURL),
		zap.String("env", coreCfg.Env))
	return r, nil
}
