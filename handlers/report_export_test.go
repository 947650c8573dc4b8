package handlers

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"entregacerta.com.br/backend/models"
)

func TestCollectLedger_FlattensProofAndAssignments(t *testing.T) {
	db := newTestDB(t)
	drv := seedDriver(t, db, "Carlos")
	inv := seedInvoice(t, db, "ledger-1", models.StatusInProgress)
	db.Model(inv).Update("driver_id", drv.ID)

	ds := newDeliveryService(db, false)
	if _, err := ds.SubmitProof(ProofSubmission{
		InvoiceID: inv.ID, ReceiverName: "João", SignatureData: "sig",
	}); err != nil {
		t.Fatal(err)
	}
	seedInvoice(t, db, "ledger-2", models.StatusPending)

	rows, err := collectLedger(db, "")
	if err != nil {
		t.Fatalf("collectLedger: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, expected 2", len(rows))
	}

	var closed *ledgerRow
	for i := range rows {
		if rows[i].AccessKey == "ledger-1" {
			closed = &rows[i]
		}
	}
	if closed == nil {
		t.Fatal("proven invoice missing from ledger")
	}
	if closed.DriverName != "Carlos" {
		t.Errorf("driver name = %q", closed.DriverName)
	}
	if closed.Receiver != "João" || closed.DeliveredAt == nil {
		t.Errorf("proof fields not flattened: %+v", closed)
	}
	if closed.Status != string(models.StatusDelivered) {
		t.Errorf("status = %q", closed.Status)
	}
}

func TestCollectLedger_StatusFilter(t *testing.T) {
	db := newTestDB(t)
	seedInvoice(t, db, "f-1", models.StatusPending)
	seedInvoice(t, db, "f-2", models.StatusDelivered)

	rows, err := collectLedger(db, string(models.StatusDelivered))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].AccessKey != "f-2" {
		t.Errorf("filtered rows = %+v", rows)
	}
}

func TestCreateLedgerCSV(t *testing.T) {
	db := newTestDB(t)
	seedInvoice(t, db, "csv-1", models.StatusPending)

	rows, err := collectLedger(db, "")
	if err != nil {
		t.Fatal(err)
	}
	data, err := createLedgerCSV(rows)
	if err != nil {
		t.Fatalf("createLedgerCSV: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, expected header + 1 row", len(records))
	}
	if records[0][0] != "Nota" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][1] != "csv-1" {
		t.Errorf("data row = %v", records[1])
	}
}

func TestCreateLedgerExcel(t *testing.T) {
	db := newTestDB(t)
	seedInvoice(t, db, "xlsx-1", models.StatusPending)
	seedInvoice(t, db, "xlsx-2", models.StatusPending)

	rows, err := collectLedger(db, "")
	if err != nil {
		t.Fatal(err)
	}
	f, err := createLedgerExcel(rows)
	if err != nil {
		t.Fatalf("createLedgerExcel: %v", err)
	}
	defer f.Close()

	header, err := f.GetCellValue("Entregas", "A4")
	if err != nil {
		t.Fatal(err)
	}
	if header != "Nota" {
		t.Errorf("header cell = %q", header)
	}
	for _, cell := range []string{"B5", "B6"} {
		v, err := f.GetCellValue("Entregas", cell)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(v, "xlsx-") {
			t.Errorf("cell %s = %q, expected an access key", cell, v)
		}
	}
}

func TestColumnIndexToLetter(t *testing.T) {
	tests := []struct {
		col      int
		expected string
	}{
		{1, "A"}, {2, "B"}, {26, "Z"}, {27, "AA"}, {52, "AZ"}, {53, "BA"},
	}
	for _, tt := range tests {
		if got := columnIndexToLetter(tt.col); got != tt.expected {
			t.Errorf("columnIndexToLetter(%d) = %q, expected %q", tt.col, got, tt.expected)
		}
	}
}
