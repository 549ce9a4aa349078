package logoutreason

import (
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestStoreLogoutReason_EncodeFailureClearsCookie(t *testing.T) {
	codec := NewCodec("", []byte("test-session-key-for-testing-only-0123"), false, zap.NewNop())
	codec.sc.MaxLength(16) // every encoded value is now too long

	rec := httptest.NewRecorder()
	reason := "Session expired"
	codec.Writer(rec).StoreLogoutReason(&reason)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies: got %d, want 1", len(cookies))
	}
	if c := cookies[0]; c.Name != DefaultCookieName || c.MaxAge >= 0 || c.Value != "" {
		t.Errorf("cookie = %+v, want an expired %q cookie", c, DefaultCookieName)
	}
}
