package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"entregacerta.com.br/backend/models"
)

// ImportFile is one XML document of a drag-and-drop batch.
type ImportFile struct {
	Name string
	Data []byte
}

// ImportDetail is the per-file outcome reported in the batch summary.
type ImportDetail struct {
	File      string `json:"file"`
	Outcome   string `json:"outcome"` // success | duplicate | error
	Number    string `json:"number,omitempty"`
	AccessKey string `json:"accessKey,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ImportSummary classifies every file of a batch. One file's failure never
// aborts the rest.
type ImportSummary struct {
	Total      int            `json:"total"`
	Success    int            `json:"success"`
	Duplicates int            `json:"duplicates"`
	Errors     int            `json:"errors"`
	Details    []ImportDetail `json:"details"`
}

// ImportCoordinator runs the extractor over a batch and persists the
// accepted invoices.
type ImportCoordinator struct {
	db  *gorm.DB
	now func() time.Time
}

// NewImportCoordinator creates a coordinator bound to db.
func NewImportCoordinator(db *gorm.DB) *ImportCoordinator {
	return &ImportCoordinator{db: db, now: time.Now}
}

// ImportBatch processes files strictly in the order given: in-batch
// duplicate detection ("a second copy of the same XML in one drop") depends
// on a stable order, and first-one-wins is the rule.
func (ic *ImportCoordinator) ImportBatch(files []ImportFile) *ImportSummary {
	summary := &ImportSummary{Total: len(files)}
	seen := make(map[string]bool)

	for _, f := range files {
		parsed, err := ParseNFe(string(f.Data))
		if err != nil {
			summary.Errors++
			summary.Details = append(summary.Details, ImportDetail{
				File: f.Name, Outcome: "error", Message: err.Error(),
			})
			continue
		}

		key := parsed.AccessKey
		if key == "" {
			// Fiscal key missing from the document; generate a surrogate so
			// the invoice is still trackable.
			key = fmt.Sprintf("GEN%d", ic.now().UnixNano())
		}

		if seen[key] || ic.accessKeyExists(key) {
			summary.Duplicates++
			summary.Details = append(summary.Details, ImportDetail{
				File: f.Name, Outcome: "duplicate", Number: parsed.Number, AccessKey: key,
				Message: fmt.Sprintf("a nota fiscal %s já existe", parsed.Number),
			})
			continue
		}

		inv, err := ic.persist(parsed, key)
		if err != nil {
			// The unique index on access_key closes the race the in-memory
			// check leaves open: a concurrent import surfaces here.
			if isDuplicateKeyError(err) {
				summary.Duplicates++
				summary.Details = append(summary.Details, ImportDetail{
					File: f.Name, Outcome: "duplicate", Number: parsed.Number, AccessKey: key,
					Message: fmt.Sprintf("a nota fiscal %s já existe", parsed.Number),
				})
				continue
			}
			summary.Errors++
			summary.Details = append(summary.Details, ImportDetail{
				File: f.Name, Outcome: "error", Message: err.Error(),
			})
			continue
		}

		seen[key] = true
		summary.Success++
		summary.Details = append(summary.Details, ImportDetail{
			File: f.Name, Outcome: "success", Number: inv.Number, AccessKey: inv.AccessKey,
		})
	}

	if summary.Total > 0 {
		log.Printf("[IMPORT] batch done: total=%d success=%d duplicates=%d errors=%d",
			summary.Total, summary.Success, summary.Duplicates, summary.Errors)
		ic.recordBatch(summary)
	}
	return summary
}

// recordBatch writes the audit entry for a finished batch. Best effort: an
// audit miss never fails an import that already persisted invoices.
func (ic *ImportCoordinator) recordBatch(summary *ImportSummary) {
	details, err := json.Marshal(summary.Details)
	if err != nil {
		log.Printf("[IMPORT] failed to encode batch details: %v", err)
		return
	}
	rec := models.ImportRecord{
		FileCount:  summary.Total,
		Success:    summary.Success,
		Duplicates: summary.Duplicates,
		Errors:     summary.Errors,
		Details:    datatypes.JSON(details),
		CreatedAt:  ic.now(),
	}
	if err := ic.db.Create(&rec).Error; err != nil {
		log.Printf("[IMPORT] failed to record batch: %v", err)
	}
}

// ImportParsed persists a single extractor/lookup result, applying the same
// duplicate rules as the batch path.
func (ic *ImportCoordinator) ImportParsed(parsed *ParsedInvoice) (*models.Invoice, error) {
	key := parsed.AccessKey
	if key == "" {
		key = fmt.Sprintf("GEN%d", ic.now().UnixNano())
	}
	if ic.accessKeyExists(key) {
		return nil, &models.DuplicateError{AccessKey: key}
	}
	inv, err := ic.persist(parsed, key)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, &models.DuplicateError{AccessKey: key}
		}
		return nil, err
	}
	return inv, nil
}

func (ic *ImportCoordinator) accessKeyExists(key string) bool {
	var count int64
	ic.db.Model(&models.Invoice{}).Where("access_key = ?", key).Count(&count)
	return count > 0
}

func (ic *ImportCoordinator) persist(parsed *ParsedInvoice, key string) (*models.Invoice, error) {
	inv := &models.Invoice{
		ID:              uuid.New(),
		AccessKey:       key,
		Number:          parsed.Number,
		Series:          parsed.Series,
		CustomerName:    parsed.CustomerName,
		CustomerDoc:     parsed.CustomerDoc,
		CustomerAddress: parsed.CustomerAddress,
		CustomerZip:     parsed.CustomerZip,
		Value:           parsed.Value,
		Status:          models.StatusPending,
		CreatedAt:       ic.now(),
	}
	for _, it := range parsed.Items {
		inv.Items = append(inv.Items, models.InvoiceItem{
			Idx:      it.Idx,
			Code:     it.Code,
			Name:     it.Name,
			Quantity: it.Quantity,
			Unit:     it.Unit,
			Value:    it.Value,
		})
	}
	if err := ic.db.Create(inv).Error; err != nil {
		return nil, err
	}
	return inv, nil
}

// isDuplicateKeyError matches unique-violation messages from Postgres and
// from the sqlite driver the tests run on.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
