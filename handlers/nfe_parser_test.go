package handlers

import (
	"strings"
	"testing"

	"entregacerta.com.br/backend/models"
)

const sampleNFe = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe Id="NFe35240612345678000199550010000123451000123456" versao="4.00">
      <ide>
        <nNF>12345</nNF>
        <serie>1</serie>
      </ide>
      <dest>
        <CNPJ>12345678000199</CNPJ>
        <xNome>Mercado Central Ltda</xNome>
        <enderDest>
          <xLgr>Rua das Flores</xLgr>
          <nro>100</nro>
          <xBairro>Centro</xBairro>
          <xMun>Sao Paulo</xMun>
          <UF>SP</UF>
          <CEP>01000000</CEP>
        </enderDest>
      </dest>
      <det nItem="1">
        <prod>
          <cProd>P001</cProd>
          <xProd>Caixa de Arroz</xProd>
          <qCom>10.0000</qCom>
          <uCom>CX</uCom>
          <vProd>500.50</vProd>
        </prod>
      </det>
      <det nItem="2">
        <prod>
          <cProd>P002</cProd>
          <xProd>Fardo de Feijao</xProd>
          <qCom>5.0000</qCom>
          <uCom>FD</uCom>
          <vProd>1000.00</vProd>
        </prod>
      </det>
      <total>
        <ICMSTot>
          <vNF>1500.50</vNF>
        </ICMSTot>
      </total>
    </infNFe>
  </NFe>
  <protNFe>
    <infProt>
      <chNFe>35240612345678000199550010000123451000123456</chNFe>
    </infProt>
  </protNFe>
</nfeProc>`

func TestParseNFe_BasicExtraction(t *testing.T) {
	parsed, err := ParseNFe(sampleNFe)
	if err != nil {
		t.Fatalf("ParseNFe returned error: %v", err)
	}

	if parsed.AccessKey != "35240612345678000199550010000123451000123456" {
		t.Errorf("access key = %q", parsed.AccessKey)
	}
	if parsed.Number != "12345" {
		t.Errorf("number = %q, expected 12345", parsed.Number)
	}
	if parsed.Series != "1" {
		t.Errorf("series = %q, expected 1", parsed.Series)
	}
	if parsed.CustomerName != "Mercado Central Ltda" {
		t.Errorf("customer name = %q", parsed.CustomerName)
	}
	if parsed.CustomerDoc != "12345678000199" {
		t.Errorf("customer doc = %q", parsed.CustomerDoc)
	}
	if parsed.Value != 1500.50 {
		t.Errorf("value = %v, expected 1500.50", parsed.Value)
	}
	if parsed.CustomerZip != "01000000" {
		t.Errorf("zip = %q", parsed.CustomerZip)
	}
	want := "Rua das Flores, 100 - Centro, Sao Paulo - SP"
	if parsed.CustomerAddress != want {
		t.Errorf("address = %q, expected %q", parsed.CustomerAddress, want)
	}
}

func TestParseNFe_ItemsPreserveSourceOrder(t *testing.T) {
	parsed, err := ParseNFe(sampleNFe)
	if err != nil {
		t.Fatalf("ParseNFe returned error: %v", err)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(parsed.Items))
	}
	first := parsed.Items[0]
	if first.Idx != 0 || first.Code != "P001" || first.Quantity != 10 || first.Unit != "CX" || first.Value != 500.50 {
		t.Errorf("first item = %+v", first)
	}
	if parsed.Items[1].Idx != 1 || parsed.Items[1].Code != "P002" {
		t.Errorf("second item = %+v", parsed.Items[1])
	}
}

func TestParseNFe_EntregaBlockWinsOverEnderDest(t *testing.T) {
	xmlText := strings.Replace(sampleNFe, "</dest>", `</dest>
      <entrega>
        <xLgr>Rodovia BR-101</xLgr>
        <nro>KM 42</nro>
        <xCpl>Galpao 3</xCpl>
        <xBairro>Distrito Industrial</xBairro>
        <xMun>Campinas</xMun>
        <UF>SP</UF>
        <CEP>13000000</CEP>
      </entrega>`, 1)

	parsed, err := ParseNFe(xmlText)
	if err != nil {
		t.Fatalf("ParseNFe returned error: %v", err)
	}
	want := "Rodovia BR-101, KM 42 (Galpao 3) - Distrito Industrial, Campinas - SP"
	if parsed.CustomerAddress != want {
		t.Errorf("address = %q, expected entrega block %q", parsed.CustomerAddress, want)
	}
	if parsed.CustomerZip != "13000000" {
		t.Errorf("zip = %q, expected entrega CEP", parsed.CustomerZip)
	}
}

func TestParseNFe_BareNFeRoot(t *testing.T) {
	// Same document without the nfeProc wrapper, common in pre-authorization
	// exports. Access key must come from the Id attribute minus the prefix.
	inner := sampleNFe
	inner = inner[strings.Index(inner, "<NFe>"):]
	inner = inner[:strings.Index(inner, "</NFe>")+len("</NFe>")]

	parsed, err := ParseNFe(inner)
	if err != nil {
		t.Fatalf("ParseNFe returned error: %v", err)
	}
	if parsed.AccessKey != "35240612345678000199550010000123451000123456" {
		t.Errorf("access key from Id attr = %q", parsed.AccessKey)
	}
	if parsed.Number != "12345" {
		t.Errorf("number = %q", parsed.Number)
	}
}

func TestParseNFe_MandatoryFields(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"missing dest", strings.Replace(strings.Replace(sampleNFe, "<dest>", "<remTest>", 1), "</dest>", "</remTest>", 1)},
		{"dest without any address block", strings.Replace(strings.Replace(sampleNFe, "<enderDest>", "<enderX>", 1), "</enderDest>", "</enderX>", 1)},
		{"missing number", strings.Replace(sampleNFe, "<nNF>12345</nNF>", "<nNF></nNF>", 1)},
		{"missing customer name", strings.Replace(sampleNFe, "<xNome>Mercado Central Ltda</xNome>", "<xNome></xNome>", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNFe(tt.xml)
			if err == nil {
				t.Fatal("expected rejection, got nil error")
			}
			if !models.IsValidationError(err) {
				t.Errorf("expected validation error, got %T: %v", err, err)
			}
		})
	}
}

func TestParseNFe_MalformedXML(t *testing.T) {
	_, err := ParseNFe("<nfeProc><NFe><infNFe>")
	if err == nil {
		t.Fatal("expected error for malformed XML")
	}
}

func TestParseNFe_DocumentFallbacks(t *testing.T) {
	// CPF replaces a missing CNPJ; when both are absent a placeholder is
	// used. Series falls back to "0".
	noCNPJ := strings.Replace(sampleNFe, "<CNPJ>12345678000199</CNPJ>", "<CPF>12345678901</CPF>", 1)
	parsed, err := ParseNFe(noCNPJ)
	if err != nil {
		t.Fatalf("ParseNFe returned error: %v", err)
	}
	if parsed.CustomerDoc != "12345678901" {
		t.Errorf("doc = %q, expected CPF fallback", parsed.CustomerDoc)
	}

	noDoc := strings.Replace(sampleNFe, "<CNPJ>12345678000199</CNPJ>", "", 1)
	noDoc = strings.Replace(noDoc, "<serie>1</serie>", "", 1)
	parsed, err = ParseNFe(noDoc)
	if err != nil {
		t.Fatalf("ParseNFe returned error: %v", err)
	}
	if parsed.CustomerDoc != "Não informado" {
		t.Errorf("doc = %q, expected placeholder", parsed.CustomerDoc)
	}
	if parsed.Series != "0" {
		t.Errorf("series = %q, expected fallback 0", parsed.Series)
	}
}

func TestParseNFe_Deterministic(t *testing.T) {
	a, err := ParseNFe(sampleNFe)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseNFe(sampleNFe)
	if err != nil {
		t.Fatal(err)
	}
	if a.AccessKey != b.AccessKey || a.CustomerAddress != b.CustomerAddress || a.Value != b.Value {
		t.Error("same input produced different outputs")
	}
	if len(a.Items) != len(b.Items) {
		t.Error("same input produced different item counts")
	}
}

func withInfCpl(text string) string {
	return strings.Replace(sampleNFe, "</infNFe>",
		"<infAdic><infCpl>"+text+"</infCpl></infAdic></infNFe>", 1)
}

func TestParseNFe_ComplementaryInfoHeuristic(t *testing.T) {
	tests := []struct {
		name   string
		infCpl string
		kept   bool
	}{
		{"address hint kept", "Entregar na portaria dos fundos", true},
		{"warehouse hint kept", "GALPAO 7, bloco B", true},
		{"billing noise dropped", "Pedido 4432 - vencimento 30 dias", false},
		{"fiscal noise dropped", "ICMS recolhido por substituicao tributaria", false},
		{"mixed noise wins", "Entregar no galpao. Referente ao pedido 99.", false},
		{"no keywords dropped", "Obrigado pela preferencia", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseNFe(withInfCpl(tt.infCpl))
			if err != nil {
				t.Fatalf("ParseNFe returned error: %v", err)
			}
			suffixed := strings.Contains(parsed.CustomerAddress, "|| OBS/LOCAL: ")
			if suffixed != tt.kept {
				t.Errorf("infCpl %q: suffix present = %v, expected %v (address %q)",
					tt.infCpl, suffixed, tt.kept, parsed.CustomerAddress)
			}
			if tt.kept && !strings.Contains(parsed.CustomerAddress, strings.ToUpper(tt.infCpl)) {
				t.Errorf("kept infCpl should be uppercased in %q", parsed.CustomerAddress)
			}
		})
	}
}

func TestParseNFe_KeywordListsOverridable(t *testing.T) {
	origAddr, origNoise := AddressKeywords, NoiseKeywords
	defer func() { AddressKeywords, NoiseKeywords = origAddr, origNoise }()

	AddressKeywords = []string{"DOCA"}
	NoiseKeywords = nil

	parsed, err := ParseNFe(withInfCpl("Descarregar na doca 5"))
	if err != nil {
		t.Fatalf("ParseNFe returned error: %v", err)
	}
	if !strings.Contains(parsed.CustomerAddress, "OBS/LOCAL: DESCARREGAR NA DOCA 5") {
		t.Errorf("custom keyword list not applied, address %q", parsed.CustomerAddress)
	}
}
