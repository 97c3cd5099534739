package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ZizzPj/fly-nyasa-ops/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

const (
	DemoCookieName   = "ops_demo"
	AccessCookieName = "ops_access_token"

	demoCookieMaxAge = 7 * 24 * 60 * 60
	operatorKey      = "ops.operator"
)

// Operator is the identity an authorized request acts as.
type Operator struct {
	Email  string
	UserID string
	Demo   bool
}

// Name is the label written to audit events.
func (o Operator) Name() string {
	switch {
	case o.Email != "":
		return o.Email
	case o.Demo:
		return "demo"
	default:
		return "unknown"
	}
}

// System is the operator scheduled jobs run as.
func System() Operator {
	return Operator{Email: "system@worker"}
}

type Options struct {
	DemoMode      bool
	DemoToken     string
	DemoUserID    string
	Allowlist     []string
	CookieSecret  []byte
	JWTSecret     []byte
	SecureCookies bool
	LoginURL      string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DemoMode:      cfg.Access.DemoMode,
		DemoToken:     cfg.Access.DemoToken,
		DemoUserID:    cfg.Access.DemoUserID,
		Allowlist:     cfg.Access.Allowlist,
		CookieSecret:  []byte(cfg.Access.CookieSecret),
		JWTSecret:     []byte(cfg.Access.JWTSecret),
		SecureCookies: cfg.HTTP.SecureCookies,
		LoginURL:      cfg.Access.LoginURL,
	}
}

// Guard decides whether a request may see ops pages or run ops actions.
// Exactly one mode is consulted per request: the demo cookie or the access token.
type Guard struct {
	opts    Options
	allow   map[string]struct{}
	cookies *securecookie.SecureCookie
	log     *zap.Logger
}

func NewGuard(opts Options, log *zap.Logger) *Guard {
	if opts.LoginURL == "" {
		opts.LoginURL = "/login"
	}
	sc := securecookie.New(opts.CookieSecret, nil)
	sc.MaxAge(demoCookieMaxAge)

	return &Guard{
		opts:    opts,
		allow:   normalizeAllowlist(opts.Allowlist),
		cookies: sc,
		log:     log.With(zap.String("component", "guard")),
	}
}

func normalizeAllowlist(entries []string) map[string]struct{} {
	allow := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		for _, part := range strings.Split(e, ",") {
			if email := strings.ToLower(strings.TrimSpace(part)); email != "" {
				allow[email] = struct{}{}
			}
		}
	}
	return allow
}

func (g *Guard) DemoMode() bool {
	return g.opts.DemoMode
}

func (g *Guard) LoginURL() string {
	return g.opts.LoginURL
}

// Authorize resolves the operator behind r.
func (g *Guard) Authorize(r *http.Request) (Operator, bool) {
	if g.opts.DemoMode {
		if !g.hasDemoAccess(r) {
			return Operator{}, false
		}
		return Operator{UserID: g.opts.DemoUserID, Demo: true}, true
	}

	claims, err := g.parseAccessToken(accessToken(r))
	if err != nil {
		g.log.Debug("access token rejected", zap.Error(err))
		return Operator{}, false
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if !g.allowed(email) {
		return Operator{}, false
	}

	userID := claims.Subject
	if userID == "" {
		userID = g.opts.DemoUserID
	}
	return Operator{Email: email, UserID: userID}, true
}

func (g *Guard) allowed(email string) bool {
	if email == "" {
		return false
	}
	_, ok := g.allow[email]
	return ok
}

func (g *Guard) hasDemoAccess(r *http.Request) bool {
	if g.opts.DemoToken == "" {
		return false
	}
	cookie, err := r.Cookie(DemoCookieName)
	if err != nil {
		return false
	}
	var token string
	if err := g.cookies.Decode(DemoCookieName, cookie.Value, &token); err != nil {
		return false
	}
	return tokensEqual(token, g.opts.DemoToken)
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Middleware redirects unauthorized requests to the login page.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		op, ok := g.Authorize(c.Request)
		if !ok {
			c.Redirect(http.StatusSeeOther, g.opts.LoginURL)
			c.Abort()
			return
		}
		c.Set(operatorKey, op)
		c.Request = c.Request.WithContext(WithOperator(c.Request.Context(), op))
		c.Next()
	}
}

// DemoLogin exchanges ?token= for the signed demo cookie.
func (g *Guard) DemoLogin(c *gin.Context) {
	if g.opts.DemoToken == "" {
		c.String(http.StatusInternalServerError, "demo token not configured")
		return
	}
	token := c.Query("token")
	if !tokensEqual(token, g.opts.DemoToken) {
		c.String(http.StatusUnauthorized, "invalid token")
		return
	}

	encoded, err := g.cookies.Encode(DemoCookieName, token)
	if err != nil {
		g.log.Error("encode demo cookie", zap.Error(err))
		c.String(http.StatusInternalServerError, "could not issue demo cookie")
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     DemoCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   demoCookieMaxAge,
		HttpOnly: true,
		Secure:   g.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	c.Redirect(http.StatusSeeOther, "/ops")
}

func (g *Guard) DemoLogout(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:   DemoCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	c.Redirect(http.StatusSeeOther, g.opts.LoginURL)
}

type operatorCtxKey struct{}

func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorCtxKey{}, op)
}

func OperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorCtxKey{}).(Operator)
	return op, ok
}
