// Package postal looks up Brazilian postal codes (CEP) to pre-fill the
// delivery address.
package postal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/pricing"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
	"github.com/utafrali/rxstore/pkg/httpclient"
)

// Getter issues idempotent GET requests. *httpclient.CircuitBreakerClient
// satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// viaCEPResponse mirrors the ViaCEP JSON document. Unknown codes come back
// as 200 with erro=true.
type viaCEPResponse struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	Erro       any    `json:"erro"`
}

// notFound reports the ViaCEP "erro" flag, which has been served both as a
// boolean and as the string "true".
func (r viaCEPResponse) notFound() bool {
	switch v := r.Erro.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// Client resolves CEPs against ViaCEP.
type Client struct {
	http    Getter
	baseURL string
}

// NewClient creates a postal lookup client. baseURL is the ViaCEP "ws" root,
// e.g. https://viacep.com.br/ws.
func NewClient(http Getter, baseURL string) *Client {
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/")}
}

// Lookup returns the address fields known for the CEP. Number and
// complement are always empty. An unknown CEP is ErrNotFound; a malformed
// one is rejected before any call is made.
func (c *Client) Lookup(ctx context.Context, cep string) (*domain.AddressData, error) {
	digits, err := pricing.NormalizePostalCode(cep)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Get(ctx, fmt.Sprintf("%s/%s/json/", c.baseURL, digits))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("postal lookup: %w", err)
		}
		return nil, apperrors.Unavailable("postal lookup", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return nil, apperrors.NotFound("postal code", digits)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperrors.Unavailable("postal lookup",
			&httpclient.StatusError{StatusCode: resp.StatusCode, URL: resp.Request.URL.String()})
	}

	var body viaCEPResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode postal lookup response: %w", err)
	}
	if body.notFound() {
		return nil, apperrors.NotFound("postal code", digits)
	}

	return &domain.AddressData{
		PostalCode: digits,
		Street:     body.Logradouro,
		District:   body.Bairro,
		City:       body.Localidade,
		State:      body.UF,
	}, nil
}
