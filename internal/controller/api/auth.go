package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Freeeeeet/mentoring/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var errInvalidToken = errors.New("invalid token")

// Claims содержимое токена: sub - логин пользователя
type Claims struct {
	UserID int64      `json:"uid"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer выпускает и проверяет HS256-токены
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (t *TokenIssuer) Issue(caller model.Caller) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(t.ttl)

	claims := &Claims{
		UserID: caller.ID,
		Role:   caller.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.Login,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

func (t *TokenIssuer) Parse(tokenStr string) (model.Caller, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Caller{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return model.Caller{}, errInvalidToken
	}

	return model.Caller{Role: claims.Role, Login: claims.Subject, ID: claims.UserID}, nil
}

type callerKey struct{}

func withCaller(ctx context.Context, caller model.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom личность из контекста запроса; без авторизации - аноним
func CallerFrom(ctx context.Context) model.Caller {
	caller, _ := ctx.Value(callerKey{}).(model.Caller)
	return caller
}

// authenticate принимает Basic (mail/пароль) или Bearer-токен.
// Без заголовка Authorization запрос анонимный.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		var (
			caller model.Caller
			err    error
		)

		switch {
		case strings.HasPrefix(header, "Bearer "):
			if a.tokens == nil {
				a.Error(w, http.StatusUnauthorized, "bearer tokens are disabled")
				return
			}
			claimed, err := a.tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				a.logger.Info("Rejected token",
					zap.String("request_id", RequestID(r.Context())),
					zap.Error(err),
				)
				a.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}
			// роль и ID берутся из хранилища: отключённый аккаунт теряет доступ сразу
			caller, err = a.directory.Resolve(r.Context(), claimed)
			if err != nil {
				a.fail(w, r, err)
				return
			}
		default:
			mail, password, ok := r.BasicAuth()
			if !ok {
				a.Error(w, http.StatusUnauthorized, "unsupported authorization scheme")
				return
			}
			caller, err = a.directory.Authenticate(r.Context(), mail, password)
			if err != nil {
				a.fail(w, r, err)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), caller)))
	})
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (a *API) issueToken(w http.ResponseWriter, r *http.Request) {
	if a.tokens == nil {
		a.Error(w, http.StatusNotFound, "bearer tokens are disabled")
		return
	}

	caller := CallerFrom(r.Context())
	if caller.IsAnonymous() {
		w.Header().Set("WWW-Authenticate", `Basic realm="mentoring"`)
		a.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	token, expires, err := a.tokens.Issue(caller)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.Response(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expires})
}
