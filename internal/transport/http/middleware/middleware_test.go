package middleware

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func makeReq(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = (&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}).String()
	return req
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	var seenID string
	var seenCtxID string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = r.Header.Get("X-Request-Id")
		seenCtxID = RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	RequestID()(h).ServeHTTP(rr, makeReq("/rid"))

	require.NotEmpty(t, seenCtxID)
	require.Equal(t, seenCtxID, rr.Header().Get("X-Request-Id"))
	// Заголовок запроса не перезаписывается, если id не приходил извне.
	require.Empty(t, seenID)
}

func TestRequestID_KeepsIncoming(t *testing.T) {
	var seenCtxID string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCtxID = RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := makeReq("/rid")
	req.Header.Set("X-Request-Id", "incoming-id")

	rr := httptest.NewRecorder()
	RequestID()(h).ServeHTTP(rr, req)

	require.Equal(t, "incoming-id", seenCtxID)
	require.Equal(t, "incoming-id", rr.Header().Get("X-Request-Id"))
}

func TestRecover_TurnsPanicInto500(t *testing.T) {
	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	Recover(discardLogger())(h).ServeHTTP(rr, makeReq("/panic"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), `"internal"`)
}

func TestTimeout_SetsDeadline(t *testing.T) {
	var hadDeadline bool

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadDeadline = r.Context().Deadline()
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	Timeout(50*time.Millisecond)(h).ServeHTTP(rr, makeReq("/t"))

	require.True(t, hadDeadline)
}

func TestTimeout_ZeroDisabled(t *testing.T) {
	var hadDeadline bool

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadDeadline = r.Context().Deadline()
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	Timeout(0)(h).ServeHTTP(rr, makeReq("/t"))

	require.False(t, hadDeadline)
}

type stubValidator struct {
	uid uuid.UUID
	err error
}

func (v stubValidator) ValidateToken(context.Context, string) (uuid.UUID, string, error) {
	return v.uid, "user@example.com", v.err
}

func TestAuthBearer_OK(t *testing.T) {
	uid := uuid.New()

	var gotUID uuid.UUID
	var ok bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID, ok = UserIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := makeReq("/secure")
	req.Header.Set("Authorization", "Bearer some-token")

	rr := httptest.NewRecorder()
	AuthBearer(stubValidator{uid: uid})(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, ok)
	require.Equal(t, uid, gotUID)
}

func TestAuthBearer_MissingOrMalformed(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, header := range []string{"", "Token abc", "Bearer"} {
		req := makeReq("/secure")
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		rr := httptest.NewRecorder()
		AuthBearer(stubValidator{uid: uuid.New()})(h).ServeHTTP(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code, "header %q", header)
	}
}

func TestAuthBearer_InvalidToken(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := makeReq("/secure")
	req.Header.Set("Authorization", "Bearer bad-token")

	rr := httptest.NewRecorder()
	AuthBearer(stubValidator{err: context.DeadlineExceeded})(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "token_error")
}
