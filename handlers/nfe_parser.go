package handlers

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"entregacerta.com.br/backend/models"
)

// NF-e XML blocks. Only the fields the import cares about are mapped; the
// fiscal document carries far more.
type nfeAddress struct {
	XLgr    string `xml:"xLgr"`
	Nro     string `xml:"nro"`
	XCpl    string `xml:"xCpl"`
	XBairro string `xml:"xBairro"`
	XMun    string `xml:"xMun"`
	UF      string `xml:"UF"`
	CEP     string `xml:"CEP"`
}

type nfeDest struct {
	XNome string      `xml:"xNome"`
	CNPJ  string      `xml:"CNPJ"`
	CPF   string      `xml:"CPF"`
	Ender *nfeAddress `xml:"enderDest"`
}

type nfeProd struct {
	CProd string `xml:"cProd"`
	XProd string `xml:"xProd"`
	QCom  string `xml:"qCom"`
	UCom  string `xml:"uCom"`
	VProd string `xml:"vProd"`
}

type nfeDet struct {
	NItem string  `xml:"nItem,attr"`
	Prod  nfeProd `xml:"prod"`
}

type nfeInf struct {
	ID  string `xml:"Id,attr"`
	Ide struct {
		NNF   string `xml:"nNF"`
		Serie string `xml:"serie"`
	} `xml:"ide"`
	Dest    *nfeDest    `xml:"dest"`
	Entrega *nfeAddress `xml:"entrega"`
	Det     []nfeDet    `xml:"det"`
	Total   struct {
		ICMSTot struct {
			VNF string `xml:"vNF"`
		} `xml:"ICMSTot"`
	} `xml:"total"`
	InfAdic struct {
		InfCpl string `xml:"infCpl"`
	} `xml:"infAdic"`
}

type nfeDoc struct {
	InfNFe nfeInf `xml:"infNFe"`
}

type nfeProcDoc struct {
	NFe     nfeDoc `xml:"NFe"`
	ProtNFe struct {
		InfProt struct {
			ChNFe string `xml:"chNFe"`
		} `xml:"infProt"`
	} `xml:"protNFe"`
}

// ParsedInvoice is the extractor output. Id and creation timestamp are
// injected by the caller, which keeps parsing deterministic.
type ParsedInvoice struct {
	AccessKey       string
	Number          string
	Series          string
	CustomerName    string
	CustomerDoc     string
	CustomerAddress string
	CustomerZip     string
	Value           float64
	Items           []ParsedItem
}

// ParsedItem is one det/prod line, Idx preserving source order.
type ParsedItem struct {
	Idx      int
	Code     string
	Name     string
	Quantity float64
	Unit     string
	Value    float64
}

// Keyword lists for the infCpl classifier. Best-effort string matching:
// complementary info is kept as an address suffix only when it looks like
// a place and not like billing noise. Package vars so tests can override.
var (
	AddressKeywords = []string{
		"RUA", "AV ", "AV.", "AVENIDA", "ROD ", "ROD.", "RODOVIA", "ESTRADA",
		"KM ", "GALPAO", "GALPÃO", "COND", "CONDOMINIO", "CONDOMÍNIO",
		"BLOCO", "QUADRA", "LOTE", "SALA", "PORTARIA", "ENTREGAR", "ENTREGA",
		"FUNDOS", "ANEXO",
	}
	NoiseKeywords = []string{
		"PEDIDO", "ORDEM DE COMPRA", "NOTA FISCAL", "FATURA", "BOLETO",
		"DUPLICATA", "PARCELA", "VENCIMENTO", "PAGAMENTO", "ICMS", "TRIBUT",
		"SUBSTITUICAO", "SUBSTITUIÇÃO",
	}
)

// keepComplementaryInfo applies the keyword heuristic to infCpl text.
func keepComplementaryInfo(infCpl string) bool {
	upper := strings.ToUpper(infCpl)
	hasAddress := false
	for _, kw := range AddressKeywords {
		if strings.Contains(upper, kw) {
			hasAddress = true
			break
		}
	}
	if !hasAddress {
		return false
	}
	for _, kw := range NoiseKeywords {
		if strings.Contains(upper, kw) {
			return false
		}
	}
	return true
}

// ParseNFe extracts an invoice record plus item list from a raw NF-e XML
// document. Pure: no I/O, no clock, no generated ids.
//
// The embedded alternate-delivery block (entrega) wins over the registered
// billing address (enderDest) when both are present; goods often ship to
// a different site than the legal address.
func ParseNFe(xmlText string) (*ParsedInvoice, error) {
	var proc nfeProcDoc
	if err := xml.Unmarshal([]byte(xmlText), &proc); err != nil {
		return nil, fmt.Errorf("failed to parse NF-e XML: %w", err)
	}
	inf := proc.NFe.InfNFe
	if inf.Dest == nil && inf.ID == "" {
		// Root may be a bare <NFe> rather than <nfeProc>.
		var doc nfeDoc
		if err := xml.Unmarshal([]byte(xmlText), &doc); err != nil {
			return nil, fmt.Errorf("failed to parse NF-e XML: %w", err)
		}
		inf = doc.InfNFe
	}

	if inf.Dest == nil {
		return nil, models.NewValidationError("XML inválido: destinatário não encontrado")
	}

	addr := inf.Dest.Ender
	if inf.Entrega != nil {
		addr = inf.Entrega
	}
	if addr == nil {
		return nil, models.NewValidationError("XML inválido: endereço de entrega não encontrado")
	}

	if inf.Ide.NNF == "" || inf.Dest.XNome == "" {
		return nil, models.NewValidationError("XML incompleto: número da nota e nome do cliente são obrigatórios")
	}

	formatted := composeAddress(addr)
	if infCpl := strings.TrimSpace(inf.InfAdic.InfCpl); infCpl != "" && keepComplementaryInfo(infCpl) {
		formatted += " || OBS/LOCAL: " + strings.ToUpper(infCpl)
	}

	accessKey := strings.TrimSpace(proc.ProtNFe.InfProt.ChNFe)
	if accessKey == "" {
		if id := strings.TrimSpace(inf.ID); strings.HasPrefix(id, "NFe") {
			accessKey = id[3:]
		}
	}

	doc := inf.Dest.CNPJ
	if doc == "" {
		doc = inf.Dest.CPF
	}
	if doc == "" {
		doc = "Não informado"
	}

	series := strings.TrimSpace(inf.Ide.Serie)
	if series == "" {
		series = "0"
	}

	value, _ := strconv.ParseFloat(strings.TrimSpace(inf.Total.ICMSTot.VNF), 64)

	parsed := &ParsedInvoice{
		AccessKey:       accessKey,
		Number:          strings.TrimSpace(inf.Ide.NNF),
		Series:          series,
		CustomerName:    strings.TrimSpace(inf.Dest.XNome),
		CustomerDoc:     doc,
		CustomerAddress: formatted,
		CustomerZip:     strings.TrimSpace(addr.CEP),
		Value:           value,
	}

	for i, det := range inf.Det {
		qty, _ := strconv.ParseFloat(strings.TrimSpace(det.Prod.QCom), 64)
		val, _ := strconv.ParseFloat(strings.TrimSpace(det.Prod.VProd), 64)
		parsed.Items = append(parsed.Items, ParsedItem{
			Idx:      i,
			Code:     strings.TrimSpace(det.Prod.CProd),
			Name:     strings.TrimSpace(det.Prod.XProd),
			Quantity: qty,
			Unit:     strings.TrimSpace(det.Prod.UCom),
			Value:    val,
		})
	}

	return parsed, nil
}

// composeAddress concatenates the street components into one
// human-readable line: "xLgr, nro (xCpl) - xBairro, xMun - UF".
func composeAddress(a *nfeAddress) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(a.XLgr))
	b.WriteString(", ")
	b.WriteString(strings.TrimSpace(a.Nro))
	if cpl := strings.TrimSpace(a.XCpl); cpl != "" {
		b.WriteString(" (")
		b.WriteString(cpl)
		b.WriteString(")")
	}
	b.WriteString(" - ")
	b.WriteString(strings.TrimSpace(a.XBairro))
	b.WriteString(", ")
	b.WriteString(strings.TrimSpace(a.XMun))
	b.WriteString(" - ")
	b.WriteString(strings.TrimSpace(a.UF))
	return b.String()
}
