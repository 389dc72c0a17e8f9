package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	flashCookie = "plategate_flash"
	flashTTL    = 5 * time.Minute

	flashSuccess = "success"
	flashError   = "error"
)

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type flashClaims struct {
	jwt.RegisteredClaims
	Flash
}

// flasher stores flashes in a signed cookie so a client cannot forge one.
type flasher struct {
	secret []byte
}

func newFlasher(secret string) *flasher {
	return &flasher{secret: []byte(secret)}
}

func (f *flasher) set(c *gin.Context, category, message string) error {
	claims := flashClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(flashTTL)),
		},
		Flash: Flash{Category: category, Message: message},
	}
	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, value, int(flashTTL.Seconds()), "/", "", false, true)
	return nil
}

// pop returns the pending flash, if any, and clears the cookie.
func (f *flasher) pop(c *gin.Context) (*Flash, error) {
	value, err := c.Cookie(flashCookie)
	if err != nil {
		return nil, nil
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)

	claims := &flashClaims{}
	_, err = jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return f.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return &claims.Flash, nil
}
