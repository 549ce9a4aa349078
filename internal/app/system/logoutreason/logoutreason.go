// Package logoutreason keeps the reason a session ended in a signed cookie
// so the next page (normally /login) can tell the user why.
package logoutreason

import (
	"errors"
	"net/http"

	"github.com/dalemusser/shipyard/internal/app/system/htmlsanitize"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// DefaultCookieName is the well-known cookie key.
const DefaultCookieName = "shipyard-logout-reason"

// maxAge of a stored reason, in seconds.
const maxAge = 300

// MaxReasonLen caps a stored reason, in characters. It matches what the
// login page displays and keeps the signed value under the browser's
// cookie size limit.
const MaxReasonLen = htmlsanitize.MaxPlainLen

// Codec signs and reads reason cookies.
type Codec struct {
	name   string
	secure bool
	sc     *securecookie.SecureCookie
	log    *zap.Logger
}

// NewCodec builds a codec keyed by hashKey (the session key is fine).
func NewCodec(name string, hashKey []byte, secure bool, logger *zap.Logger) *Codec {
	if name == "" {
		name = DefaultCookieName
	}
	sc := securecookie.New(hashKey, nil)
	sc.MaxAge(maxAge)
	return &Codec{name: name, secure: secure, sc: sc, log: logger}
}

// Name returns the cookie name.
func (c *Codec) Name() string { return c.name }

// Writer binds the codec to one response. It implements the logout
// sequencer's reason store.
func (c *Codec) Writer(w http.ResponseWriter) *Writer {
	return &Writer{codec: c, w: w}
}

// Read returns the stored reason, or "" when none is set or the cookie
// fails verification.
func (c *Codec) Read(r *http.Request) string {
	ck, err := r.Cookie(c.name)
	if err != nil {
		return ""
	}
	var reason string
	if err := c.sc.Decode(c.name, ck.Value, &reason); err != nil {
		if !errors.Is(err, http.ErrNoCookie) {
			c.log.Debug("logout reason cookie rejected", zap.Error(err))
		}
		return ""
	}
	return reason
}

// Clear expires the cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Consume reads the reason and clears the cookie.
func (c *Codec) Consume(w http.ResponseWriter, r *http.Request) string {
	reason := c.Read(r)
	if _, err := r.Cookie(c.name); err == nil {
		c.Clear(w)
	}
	return reason
}

// Writer stores the reason on a single response.
type Writer struct {
	codec *Codec
	w     http.ResponseWriter
	n     int
}

// StoreLogoutReason sets the cookie. A nil reason stores an empty value,
// replacing any reason left by an earlier logout. Reasons longer than
// MaxReasonLen are cut. If encoding still fails the cookie is cleared, so
// an older reason never outlives this logout.
func (wr *Writer) StoreLogoutReason(reason *string) {
	wr.n++
	value := ""
	if reason != nil {
		value = htmlsanitize.Truncate(*reason, MaxReasonLen)
	}
	encoded, err := wr.codec.sc.Encode(wr.codec.name, value)
	if err != nil {
		wr.codec.log.Warn("encode logout reason", zap.Error(err))
		wr.codec.Clear(wr.w)
		return
	}
	http.SetCookie(wr.w, &http.Cookie{
		Name:     wr.codec.name,
		Value:    encoded,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   wr.codec.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Writes is how many times StoreLogoutReason ran.
func (wr *Writer) Writes() int { return wr.n }
