package twofactor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthyServer(t *testing.T, handler http.HandlerFunc) *AuthyClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAuthyClient(AuthyConfig{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second})
}

func TestAuthy_RegisterUser(t *testing.T) {
	client := newAuthyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/protected/json/users/new", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Authy-API-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ada@example.com", r.PostForm.Get("user[email]"))
		assert.Equal(t, "2015550123", r.PostForm.Get("user[cellphone]"))
		assert.Equal(t, "1", r.PostForm.Get("user[country_code]"))
		_, _ = w.Write([]byte(`{"message":"User created successfully.","user":{"id":4242},"success":true}`))
	})

	id, err := client.RegisterUser(context.Background(), Registration{
		Email:       "ada@example.com",
		Cellphone:   "2015550123",
		CountryCode: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "4242", id)
}

func TestAuthy_RequestSMS(t *testing.T) {
	client := newAuthyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/protected/json/sms/4242", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("force"))
		_, _ = w.Write([]byte(`{"success":true,"message":"SMS token was sent","cellphone":"+1-XXX-XXX-XX23"}`))
	})

	phone, err := client.RequestSMS(context.Background(), "4242")
	require.NoError(t, err)
	assert.Equal(t, "+1-XXX-XXX-XX23", phone)
}

func TestAuthy_RequestSMS_UnknownUser(t *testing.T) {
	client := newAuthyServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"User not found.","error_code":"60026"}`))
	})

	_, err := client.RequestSMS(context.Background(), "1")
	require.ErrorIs(t, err, ErrUnknownUser)
}

func TestAuthy_VerifyToken(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{"string success", http.StatusOK, `{"success":"true","token":"is valid"}`, true, false},
		{"bool success", http.StatusOK, `{"success":true}`, true, false},
		{"invalid code", http.StatusUnauthorized, `{"success":false,"token":"is invalid","error_code":"60020"}`, false, false},
		{"bad api key", http.StatusUnauthorized, `{"success":false,"error_code":"60001"}`, false, true},
		{"200 without success", http.StatusOK, `{"message":"??"}`, false, true},
		{"malformed body", http.StatusOK, `<html>`, false, true},
		{"server error", http.StatusBadGateway, `{"success":true}`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newAuthyServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/protected/json/verify/123456/4242", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			ok, err := client.VerifyToken(context.Background(), "4242", "123456")
			assert.Equal(t, tt.want, ok)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAuthy_VerifyToken_EscapesPath(t *testing.T) {
	client := newAuthyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/protected/json/verify/..%2Fusers/4242", r.URL.EscapedPath())
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error_code":"60020"}`))
	})

	ok, err := client.VerifyToken(context.Background(), "4242", "../users")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthy_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := NewAuthyClient(AuthyConfig{BaseURL: srv.URL, APIKey: "key", Timeout: 30 * time.Millisecond})
	ok, err := client.VerifyToken(context.Background(), "4242", "123456")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestAuthy_DeleteUser(t *testing.T) {
	client := newAuthyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/protected/json/users/4242/remove", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	require.NoError(t, client.DeleteUser(context.Background(), "4242"))
}

func TestAuthy_TransportError(t *testing.T) {
	client := NewAuthyClient(AuthyConfig{BaseURL: "http://127.0.0.1:1", APIKey: "key", Timeout: time.Second})
	_, err := client.RequestSMS(context.Background(), "4242")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownUser))
}
