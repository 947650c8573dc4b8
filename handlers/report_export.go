package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"entregacerta.com.br/backend/config"
	"entregacerta.com.br/backend/models"
)

// ledgerRow is one flattened line of the delivery ledger export.
type ledgerRow struct {
	Number       string
	AccessKey    string
	Customer     string
	Address      string
	Value        float64
	Status       string
	DriverName   string
	VehiclePlate string
	DeliveredAt  *time.Time
	Receiver     string
	Failure      string
	Loss         float64
}

var ledgerHeaders = []string{
	"Nota", "Chave de Acesso", "Cliente", "Endereço", "Valor (R$)",
	"Status", "Motorista", "Veículo", "Data da Baixa", "Recebedor",
	"Motivo da Falha", "Perda (R$)",
}

// ExportLedgerToExcel downloads the delivery ledger as a spreadsheet.
// GET /api/v1/reports/ledger.xlsx
func ExportLedgerToExcel(w http.ResponseWriter, r *http.Request) {
	rows, err := collectLedger(config.DB, r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	f, err := createLedgerExcel(rows)
	if err != nil {
		http.Error(w, "Failed to generate Excel file", http.StatusInternalServerError)
		return
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		http.Error(w, "Failed to write Excel file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("entregas_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buffer.Len()))

	w.WriteHeader(http.StatusOK)
	w.Write(buffer.Bytes())
}

// ExportLedgerToCSV downloads the delivery ledger as CSV.
// GET /api/v1/reports/ledger.csv
func ExportLedgerToCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := collectLedger(config.DB, r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	csvData, err := createLedgerCSV(rows)
	if err != nil {
		http.Error(w, "Failed to generate CSV file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("entregas_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(csvData)))

	w.WriteHeader(http.StatusOK)
	w.Write(csvData)
}

// collectLedger flattens invoices plus their proofs and assignments.
func collectLedger(db *gorm.DB, status string) ([]ledgerRow, error) {
	q := db.Model(&models.Invoice{}).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var invoices []models.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		return nil, err
	}

	drivers := map[string]string{}
	vehicles := map[string]string{}
	var ds []models.Driver
	db.Find(&ds)
	for _, d := range ds {
		drivers[d.ID.String()] = d.Name
	}
	var vs []models.Vehicle
	db.Find(&vs)
	for _, v := range vs {
		vehicles[v.ID.String()] = v.Plate
	}

	rows := make([]ledgerRow, 0, len(invoices))
	for _, inv := range invoices {
		row := ledgerRow{
			Number:    inv.Number,
			AccessKey: inv.AccessKey,
			Customer:  inv.CustomerName,
			Address:   inv.CustomerAddress,
			Value:     inv.Value,
			Status:    string(inv.Status),
		}
		if inv.DriverID != nil {
			row.DriverName = drivers[inv.DriverID.String()]
		}
		if inv.VehicleID != nil {
			row.VehiclePlate = vehicles[inv.VehicleID.String()]
		}
		var proof models.DeliveryProof
		if err := db.First(&proof, "invoice_id = ?", inv.ID).Error; err == nil {
			t := proof.DeliveredAt
			row.DeliveredAt = &t
			row.Receiver = proof.ReceiverName
			row.Failure = proof.FailureReason
			row.Loss = proof.LossAmount
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (lr ledgerRow) cells() []interface{} {
	delivered := ""
	if lr.DeliveredAt != nil {
		delivered = lr.DeliveredAt.Format("2006-01-02 15:04:05")
	}
	return []interface{}{
		lr.Number, lr.AccessKey, lr.Customer, lr.Address, lr.Value,
		lr.Status, lr.DriverName, lr.VehiclePlate, delivered, lr.Receiver,
		lr.Failure, lr.Loss,
	}
}

func createLedgerExcel(rows []ledgerRow) (*excelize.File, error) {
	f := excelize.NewFile()
	sheetName := "Entregas"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 16,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "center",
		},
	})
	f.SetCellValue(sheetName, "A1", "Relatório de Entregas")
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetRowHeight(sheetName, 1, 30)

	f.SetCellValue(sheetName, "A2", fmt.Sprintf("Gerado em: %s", time.Now().Format("2006-01-02 15:04:05")))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for colIdx, label := range ledgerHeaders {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 4)
		f.SetCellValue(sheetName, cell, label)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		f.SetColWidth(sheetName, columnIndexToLetter(colIdx+1), columnIndexToLetter(colIdx+1), 20)
	}

	dataStyle, _ := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "CCCCCC", Style: 1},
			{Type: "right", Color: "CCCCCC", Style: 1},
			{Type: "top", Color: "CCCCCC", Style: 1},
			{Type: "bottom", Color: "CCCCCC", Style: 1},
		},
	})

	var totalValue, totalLoss float64
	for rowIdx, row := range rows {
		for colIdx, value := range row.cells() {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+5)
			f.SetCellValue(sheetName, cell, value)
			f.SetCellStyle(sheetName, cell, cell, dataStyle)
		}
		totalValue += row.Value
		totalLoss += row.Loss
	}

	summaryRow := len(rows) + 7
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E7E6E6"},
			Pattern: 1,
		},
	})
	cell, _ := excelize.CoordinatesToCellName(1, summaryRow)
	f.SetCellValue(sheetName, cell, "Resumo")
	f.SetCellStyle(sheetName, cell, cell, summaryStyle)
	summary := []struct {
		label string
		value interface{}
	}{
		{"Total de notas", len(rows)},
		{"Valor total (R$)", totalValue},
		{"Perda total (R$)", totalLoss},
	}
	for i, s := range summary {
		keyCell, _ := excelize.CoordinatesToCellName(1, summaryRow+1+i)
		valueCell, _ := excelize.CoordinatesToCellName(2, summaryRow+1+i)
		f.SetCellValue(sheetName, keyCell, s.label)
		f.SetCellValue(sheetName, valueCell, s.value)
	}

	f.DeleteSheet("Sheet1")

	return f, nil
}

func createLedgerCSV(rows []ledgerRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	writer.Write(ledgerHeaders)

	for _, row := range rows {
		record := []string{}
		for _, value := range row.cells() {
			record = append(record, fmt.Sprintf("%v", value))
		}
		writer.Write(record)
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

func columnIndexToLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+(col%26))) + result
		col /= 26
	}
	return result
}
