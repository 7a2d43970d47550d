// Package server arma las dependencias de cada servicio a partir de la config y
// corre el http.Server con apagado ordenado.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/codeflow/internal/audit"
	"github.com/dropDatabas3/codeflow/internal/cache"
	"github.com/dropDatabas3/codeflow/internal/config"
	clientctrl "github.com/dropDatabas3/codeflow/internal/http/controllers/client"
	"github.com/dropDatabas3/codeflow/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/codeflow/internal/http/controllers/oauth"
	dto "github.com/dropDatabas3/codeflow/internal/http/dto/oauth"
	"github.com/dropDatabas3/codeflow/internal/http/helpers"
	"github.com/dropDatabas3/codeflow/internal/http/router"
	clientsvc "github.com/dropDatabas3/codeflow/internal/http/services/client"
	oauthsvc "github.com/dropDatabas3/codeflow/internal/http/services/oauth"
	"github.com/dropDatabas3/codeflow/internal/identity"
	"github.com/dropDatabas3/codeflow/internal/jwt"
	"github.com/dropDatabas3/codeflow/internal/observability/logger"
	"github.com/dropDatabas3/codeflow/internal/rate"
	"github.com/dropDatabas3/codeflow/internal/security/password"
	"github.com/dropDatabas3/codeflow/internal/store"
)

// App un servicio listo para servir.
type App struct {
	Name    string
	Addr    string
	Handler http.Handler

	background []func(ctx context.Context)
	closers    []func() error
}

// Close libera stores y conexiones en orden inverso de apertura.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// backend stores + cache compartiendo una conexión redis cuando hay una.
type backend struct {
	stores *store.Stores
	cache  cache.Client
	rdb    *redis.Client
}

func openBackend(ctx context.Context, app *App, sc config.StorageConfig, opts store.Options) (*backend, error) {
	b := &backend{}
	if sc.Driver == "redis" || sc.Redis.Addr != "" {
		rdb, err := cache.DialRedis(ctx, sc.Redis)
		if err != nil {
			return nil, err
		}
		b.rdb = rdb
		app.closers = append(app.closers, rdb.Close)
		b.cache = cache.NewRedis(rdb, sc.Prefix)
	} else {
		b.cache = cache.NewMemory(sc.Prefix)
		app.closers = append(app.closers, b.cache.Close)
	}

	stores, err := store.Open(ctx, store.Config{
		Driver: sc.Driver,
		DSN:    sc.DSN,
		Redis:  b.rdb,
		Prefix: sc.Prefix,
	}, opts)
	if err != nil {
		return nil, err
	}
	b.stores = stores
	app.closers = append(app.closers, func() error { stores.Close(); return nil })
	app.background = append(app.background, func(ctx context.Context) { stores.RunSweeper(ctx, sc.SweepInterval) })

	logger.L().Info("storage ready",
		logger.Component(app.Name), logger.String("driver", stores.Driver), logger.Bool("redis", b.rdb != nil))
	return b, nil
}

// BuildAuthServer arma el authorization server.
func BuildAuthServer(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	ac := cfg.AuthServer
	a := &App{Name: "authserver", Addr: ac.Addr}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	opts := store.Options{CodeTTL: ac.CodeTTL, TokenTTL: ac.TokenTTL}
	var issuer *jwt.Issuer
	if ac.TokenFormat == "jwt" {
		key, kerr := jwt.LoadSigningKey(ac.SigningKey)
		if kerr != nil {
			return nil, kerr
		}
		if ac.SigningKey == "" {
			logger.L().Warn("no signing_key configured, using an ephemeral key")
		}
		issuer = jwt.NewIssuer(ac.Issuer, key)
		opts.Minter = issuer
	}

	b, err := openBackend(ctx, a, ac.Storage, opts)
	if err != nil {
		return nil, err
	}

	users, err := identity.NewMemoryUserStore(password.Default, userSeeds(ac.Users))
	if err != nil {
		return nil, fmt.Errorf("identity: users: %w", err)
	}
	clients, err := identity.NewMemoryClientRegistry(registeredClients(ac.Clients))
	if err != nil {
		return nil, err
	}

	scopes := make([]dto.ScopeView, 0, len(ac.Scopes))
	for _, s := range ac.Scopes {
		scopes = append(scopes, dto.ScopeView{Name: s.Name, Description: s.Description})
	}

	services := oauthctrl.Services{
		Authorize: oauthsvc.NewAuthorizeService(oauthsvc.AuthorizeDeps{
			Clients:    clients,
			Users:      users,
			Codes:      b.stores.Codes,
			Cache:      b.cache,
			Scopes:     oauthsvc.NewScopeCatalog(scopes),
			ConsentTTL: ac.ConsentTTL,
		}),
		Token:    oauthsvc.NewTokenService(oauthsvc.TokenDeps{Clients: clients, Codes: b.stores.Codes, Tokens: b.stores.Tokens}),
		UserInfo: oauthsvc.NewUserInfoService(oauthsvc.UserInfoDeps{Tokens: b.stores.Tokens, Users: users}),
	}

	var limiter rate.Limiter
	if ac.Rate.Enabled {
		limiter = rate.New(b.rdb, ac.Storage.Prefix+":rl", ac.Rate.Max, ac.Rate.Window)
	}

	a.Handler = router.NewAuthServerRouter(router.AuthServerDeps{
		OAuth: oauthctrl.NewControllers(services, issuer),
		Health: health.NewController(a.Name, cfg.App.Version, map[string]health.Check{
			"store": b.stores.Ping,
			"cache": b.cache.Ping,
		}),
		Limiter:    limiter,
		TrustProxy: ac.Rate.TrustProxy,
		Metrics:    router.MetricsOptions{Enabled: cfg.Metrics.Enabled, Path: cfg.Metrics.Path},
	})
	return a, nil
}

// BuildClient arma la app client.
func BuildClient(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	cc := cfg.Client
	a := &App{Name: "client", Addr: cc.Addr}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	b, err := openBackend(ctx, a, cc.Storage, store.Options{StateTTL: cc.StateTTL})
	if err != nil {
		return nil, err
	}

	flow := clientsvc.NewFlowService(clientsvc.FlowDeps{
		ClientID:       cc.ClientID,
		ClientSecret:   cc.ClientSecret,
		RedirectURI:    cc.RedirectURI,
		Scopes:         cc.Scopes,
		AuthServerURL:  cc.AuthServerURL,
		BackchannelURL: cc.BackchannelURL,
		HTTPClient:     &http.Client{Timeout: cc.HTTPTimeout},
		States:         b.stores.States,
		Sessions:       b.cache,
		SessionTTL:     cc.SessionTTL,
		StateFallback:  strings.ToLower(cc.StateFallback),
		Audit:          audit.New(cc.SessionTTL, audit.DefaultMaxEvents),
	})

	a.Handler = router.NewClientRouter(router.ClientDeps{
		Flow: clientctrl.NewFlowController(flow, helpers.CookieOptions{
			Name:     cc.Cookie.Name,
			Domain:   cc.Cookie.Domain,
			SameSite: cc.Cookie.SameSite,
			Secure:   cc.Cookie.Secure,
			TTL:      cc.SessionTTL,
		}),
		Health: health.NewController(a.Name, cfg.App.Version, map[string]health.Check{
			"store":    b.stores.Ping,
			"sessions": b.cache.Ping,
		}),
		Metrics: router.MetricsOptions{Enabled: cfg.Metrics.Enabled, Path: cfg.Metrics.Path},
	})
	return a, nil
}

func userSeeds(in []config.UserConfig) []identity.UserSeed {
	out := make([]identity.UserSeed, 0, len(in))
	for _, u := range in {
		out = append(out, identity.UserSeed{
			Username:     u.Username,
			Email:        u.Email,
			Password:     u.Password,
			PasswordHash: u.PasswordHash,
			Metadata:     u.Metadata,
		})
	}
	return out
}

func registeredClients(in []config.RegisteredClientConfig) []identity.Client {
	out := make([]identity.Client, 0, len(in))
	for _, c := range in {
		out = append(out, identity.Client{
			ID:            c.ClientID,
			Secret:        c.ClientSecret,
			RedirectURIs:  c.RedirectURIs,
			AllowedScopes: c.AllowedScopes,
		})
	}
	return out
}
