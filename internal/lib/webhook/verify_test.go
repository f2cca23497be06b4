package webhook

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-key"))

func newTestVerifier(t *testing.T, now time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, 5*time.Minute)
	require.NoError(t, err)
	v.now = func() time.Time { return now }
	return v
}

func sign(t *testing.T, v *Verifier, id string, ts int64, body []byte) string {
	t.Helper()
	sig, err := v.Sign(id, ts, body)
	require.NoError(t, err)
	return sig
}

func headers(id string, ts int64, sig string) http.Header {
	h := http.Header{}
	h.Set(HeaderID, id)
	h.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	h.Set(HeaderSignature, sig)
	return h
}

func TestVerifier_Verify(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, now)
	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	ts := now.Unix()
	good := sign(t, v, "msg_1", ts, body)
	require.True(t, strings.HasPrefix(good, "v1,"))

	tests := []struct {
		name    string
		header  http.Header
		body    []byte
		wantErr error
	}{
		{name: "верная подпись", header: headers("msg_1", ts, good), body: body},
		{name: "одна из нескольких подписей", header: headers("msg_1", ts, "v1,Zm9v "+good), body: body},
		{name: "изменённое тело", header: headers("msg_1", ts, good), body: []byte(`{}`), wantErr: ErrInvalidSignature},
		{name: "другой id сообщения", header: headers("msg_2", ts, good), body: body, wantErr: ErrInvalidSignature},
		{name: "неизвестная версия подписи", header: headers("msg_1", ts, "v2,"+strings.TrimPrefix(good, "v1,")), body: body, wantErr: ErrInvalidSignature},
		{name: "слишком старое сообщение", header: headers("msg_1", ts-600, sign(t, v, "msg_1", ts-600, body)), body: body, wantErr: ErrInvalidTimestamp},
		{name: "сообщение из будущего", header: headers("msg_1", ts+600, sign(t, v, "msg_1", ts+600, body)), body: body, wantErr: ErrInvalidTimestamp},
		{name: "нет заголовков", header: http.Header{}, body: body, wantErr: ErrMissingHeaders},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.header, tt.body)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestVerifier_BadTimestamp(t *testing.T) {
	v := newTestVerifier(t, time.Now())
	h := http.Header{}
	h.Set(HeaderID, "msg_1")
	h.Set(HeaderTimestamp, "yesterday")
	h.Set(HeaderSignature, "v1,abc")
	require.ErrorIs(t, v.Verify(h, nil), ErrInvalidTimestamp)
}

func TestNewVerifier(t *testing.T) {
	_, err := NewVerifier("whsec_!!!", time.Minute)
	require.Error(t, err)

	_, err = NewVerifier("", time.Minute)
	require.Error(t, err)

	// секрет без префикса whsec_ подписывает так же, как с префиксом
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{}`)
	plain, err := NewVerifier(strings.TrimPrefix(testSecret, "whsec_"), time.Minute)
	require.NoError(t, err)
	plain.now = func() time.Time { return now }
	prefixed := newTestVerifier(t, now)
	require.NoError(t, plain.Verify(headers("msg_1", now.Unix(), sign(t, prefixed, "msg_1", now.Unix(), body)), body))
}
