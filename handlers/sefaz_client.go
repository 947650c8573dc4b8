package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"entregacerta.com.br/backend/models"
)

const defaultLookupBaseURL = "https://brasilapi.com.br/api/nfe/v1"

// SefazClient queries the public fiscal-document lookup service by
// 44-digit access key, the alternative to XML upload when only a DANFE
// barcode is at hand.
type SefazClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewSefazClient builds a client against NFE_LOOKUP_URL or the public
// default.
func NewSefazClient() *SefazClient {
	base := os.Getenv("NFE_LOOKUP_URL")
	if base == "" {
		base = defaultLookupBaseURL
	}
	return &SefazClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(base, "/"),
	}
}

// lookupResponse mirrors the fields the public endpoint returns. Address
// may be omitted for privacy; fallbacks below handle that.
type lookupResponse struct {
	Numero       string      `json:"numero"`
	Serie        string      `json:"serie"`
	ValorTotal   json.Number `json:"valor_total"`
	Destinatario *struct {
		Nome     string `json:"nome"`
		CPF      string `json:"cpf"`
		CNPJ     string `json:"cnpj"`
		Endereco *struct {
			Logradouro string `json:"logradouro"`
			Numero     string `json:"numero"`
			Bairro     string `json:"bairro"`
			CEP        string `json:"cep"`
		} `json:"endereco"`
	} `json:"destinatario"`
}

// CleanAccessKey strips everything but digits from a scanned or typed key.
func CleanAccessKey(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FetchInvoice looks an access key up and maps the response into a
// ParsedInvoice, falling back to key substrings and placeholder text where
// the service omits fields.
func (c *SefazClient) FetchInvoice(ctx context.Context, accessKey string) (*ParsedInvoice, error) {
	key := CleanAccessKey(accessKey)
	if len(key) != 44 {
		return nil, models.NewValidationError("chave inválida: deve ter 44 dígitos")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+key, nil)
	if err != nil {
		return nil, &models.RemoteError{Op: "nfe lookup", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.RemoteError{Op: "nfe lookup", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.RemoteError{
			Op:  "nfe lookup",
			Err: fmt.Errorf("nota não encontrada na base pública (status %d)", resp.StatusCode),
		}
	}

	var data lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &models.RemoteError{Op: "nfe lookup", Err: err}
	}

	// Number and series are always recoverable from the key itself:
	// positions 22-25 hold the series, 25-34 the number.
	parsed := &ParsedInvoice{
		AccessKey:       key,
		Number:          data.Numero,
		Series:          data.Serie,
		CustomerName:    "Consumidor Final / Não Identificado",
		CustomerAddress: "Endereço não retornado (Preencher na entrega)",
	}
	if parsed.Number == "" {
		parsed.Number = strings.TrimLeft(key[25:34], "0")
		if parsed.Number == "" {
			parsed.Number = "0"
		}
	}
	if parsed.Series == "" {
		parsed.Series = key[22:25]
	}
	if v, err := data.ValorTotal.Float64(); err == nil {
		parsed.Value = v
	}

	if d := data.Destinatario; d != nil {
		if d.Nome != "" {
			parsed.CustomerName = d.Nome
		}
		if d.CPF != "" {
			parsed.CustomerDoc = d.CPF
		} else {
			parsed.CustomerDoc = d.CNPJ
		}
		if e := d.Endereco; e != nil {
			parsed.CustomerAddress = fmt.Sprintf("%s, %s - %s", e.Logradouro, e.Numero, e.Bairro)
			parsed.CustomerZip = e.CEP
		}
	}

	return parsed, nil
}
