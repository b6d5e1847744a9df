package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"estate-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferAccepted_SendsEmail(t *testing.T) {
	var got BrevoSendRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := &BrevoClient{APIKey: "k", MailFrom: "sales@estate.example", Endpoint: srv.URL}
	err := c.OfferAccepted(context.Background(),
		domain.Partner{Name: "Alice <Buyer>", Email: "alice@example.com"},
		domain.Property{Name: "Seaside Villa"}, 190000)
	require.NoError(t, err)

	assert.Equal(t, "k", apiKey)
	assert.Equal(t, "sales@estate.example", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "alice@example.com", got.To[0].Email)
	assert.Equal(t, "Your offer on Seaside Villa was accepted", got.Subject)
	assert.Contains(t, got.HTMLContent, "190000.00")
	assert.Contains(t, got.HTMLContent, "Alice &lt;Buyer&gt;")
}

func TestOfferAccepted_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &BrevoClient{APIKey: "k", Endpoint: srv.URL}
	err := c.OfferAccepted(context.Background(), domain.Partner{Email: "a@b.com"}, domain.Property{Name: "X"}, 1)
	assert.EqualError(t, err, "brevo send failed: status 400")
}

func TestOfferAccepted_DisabledWithoutKeyOrEmail(t *testing.T) {
	c := &BrevoClient{Endpoint: "http://127.0.0.1:1"}
	assert.NoError(t, c.OfferAccepted(context.Background(), domain.Partner{Email: "a@b.com"}, domain.Property{}, 1))

	c.APIKey = "k"
	assert.NoError(t, c.OfferAccepted(context.Background(), domain.Partner{}, domain.Property{}, 1))
}
