package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

/******** JWT / Claims ********/

const adminRole = "admin"

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) secret() []byte { return []byte(s.App.Cfg.Server.AdminSecret) }

func (s *Server) makeToken() (string, time.Time, error) {
	now := s.now()
	exp := now.Add(time.Duration(s.App.Cfg.Server.TokenTTL) * time.Minute)
	claims := Claims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminRole,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret())
	return signed, exp, err
}

func (s *Server) parseToken(tk string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tk, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

/******** Middlewares ********/

// AdminRequired parses Authorization: Bearer <token> and requires the admin role.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.App.Cfg.Server.AdminSecret == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin api disabled"})
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		claims, err := s.parseToken(strings.TrimSpace(auth[7:]))
		if err != nil || claims.Role != adminRole {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

/******** Handlers ********/

// POST /api/token  {secret}
func (s *Server) issueToken(c *gin.Context) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	want := s.App.Cfg.Server.AdminSecret
	if want == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin api disabled"})
		return
	}

	key := "token|" + c.ClientIP()
	if !s.allowGuard(c, key) {
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(want)) != 1 {
		s.App.Guard.Fail(key)
		log.Warnf("token rejected ip=%s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
		return
	}
	s.App.Guard.Success(key)

	tk, exp, err := s.makeToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tk, "expires_at": exp.UnixMilli()})
}

// allowGuard writes a 429 with Retry-After when key is throttled.
func (s *Server) allowGuard(c *gin.Context, key string) bool {
	ok, retry := s.App.Guard.Allow(key)
	if ok {
		return true
	}
	tooMany(c, retry)
	return false
}

func tooMany(c *gin.Context, retry time.Duration) {
	secs := int(retry.Seconds())
	if retry > time.Duration(secs)*time.Second {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", fmt.Sprintf("%d", secs))
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, try later"})
}
