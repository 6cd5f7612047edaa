package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient_FollowsSameHostRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old/forces" {
			http.Redirect(w, r, "/forces", http.StatusMovedPermanently)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewHTTPClient(time.Second, true)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/old/forces", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/forces", resp.Request.URL.Path)
}

func TestNewHTTPClient_RejectsOffHostRedirect(t *testing.T) {
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the redirect target")
	}))
	defer other.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, other.URL+"/crimes-street/all-crime", http.StatusTemporaryRedirect)
	}))
	defer srv.Close()

	client := NewHTTPClient(time.Second, false)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/crimes-street/all-crime", nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	assert.ErrorIs(t, err, ErrRedirectRejected)
}

func TestSameHostRedirect_Limit(t *testing.T) {
	first, _ := http.NewRequest(http.MethodGet, "https://data.police.uk/api/forces", nil)
	next, _ := http.NewRequest(http.MethodGet, "https://data.police.uk/api/forces/", nil)

	via := []*http.Request{first, first, first}
	assert.ErrorIs(t, sameHostRedirect(next, via), ErrRedirectRejected)
	assert.NoError(t, sameHostRedirect(next, via[:1]))
}
