package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"entregacerta.com.br/backend/models"
)

// DeliveryService owns the invoice lifecycle: logistics assignment, route
// start and proof submission, plus the notifications those raise.
type DeliveryService struct {
	db       *gorm.DB
	notifier *NotificationService
	// Whether FAILED invoices also refuse logistics changes, symmetric
	// with DELIVERED. The default workflow leaves them editable so a
	// failed stop can be re-assigned for a second attempt.
	lockFailed bool
}

// NewDeliveryService creates a delivery service bound to db.
func NewDeliveryService(db *gorm.DB, notifier *NotificationService, lockFailed bool) *DeliveryService {
	return &DeliveryService{db: db, notifier: notifier, lockFailed: lockFailed}
}

// AssignLogistics sets an invoice's driver and vehicle. Setting a driver
// resets status to PENDING; a *new* driver is notified of the load.
// DELIVERED invoices refuse the change at the store level, not just in
// the console UI.
func (ds *DeliveryService) AssignLogistics(invoiceID uuid.UUID, driverID, vehicleID *uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	if err := ds.db.First(&inv, "id = ?", invoiceID).Error; err != nil {
		return nil, err
	}

	if inv.Status == models.StatusDelivered {
		return nil, models.ErrInvoiceLocked
	}
	if ds.lockFailed && inv.Status == models.StatusFailed {
		return nil, models.ErrInvoiceLocked
	}

	previousDriver := inv.DriverID

	updates := map[string]interface{}{
		"driver_id":  driverID,
		"vehicle_id": vehicleID,
	}
	if driverID != nil {
		updates["status"] = models.StatusPending
	}
	if err := ds.db.Model(&inv).Updates(updates).Error; err != nil {
		return nil, err
	}

	if driverID != nil && (previousDriver == nil || *previousDriver != *driverID) {
		ds.notifier.Publish(driverID.String(), "Nova Carga",
			fmt.Sprintf("NF %s adicionada.", inv.Number), models.NotificationInfo)
	}

	return &inv, nil
}

// StartRoute bulk-moves all of a driver's PENDING invoices to IN_PROGRESS
// and tells the manager how many stops the route has. Returns the count.
func (ds *DeliveryService) StartRoute(driverID uuid.UUID) (int64, error) {
	var count int64
	if err := ds.db.Model(&models.Invoice{}).
		Where("driver_id = ? AND status = ?", driverID, models.StatusPending).
		Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	if err := ds.db.Model(&models.Invoice{}).
		Where("driver_id = ? AND status = ?", driverID, models.StatusPending).
		Update("status", models.StatusInProgress).Error; err != nil {
		return 0, err
	}

	// The bulk update and the notification are not one atomic unit; a
	// crash in between leaves the route started and the manager
	// un-notified, which is accepted as best-effort.
	driverName := "Motorista"
	var drv models.Driver
	if err := ds.db.First(&drv, "id = ?", driverID).Error; err == nil {
		driverName = drv.Name
	}
	ds.notifier.Publish(models.AdminRecipient, "Início de Rota",
		fmt.Sprintf("%s iniciou a rota com %d entregas.", driverName, count),
		models.NotificationInfo)

	log.Printf("[ROUTE] driver=%s started route with %d deliveries", driverID, count)
	return count, nil
}

// ProofSubmission carries the capture-form payload for one stop. Exactly
// one of the two flows applies: success (receiver + evidence) or failure
// (reason + return details).
type ProofSubmission struct {
	InvoiceID     uuid.UUID `json:"invoiceId"`
	ReceiverName  string    `json:"receiverName"`
	ReceiverDoc   string    `json:"receiverDoc"`
	SignatureData string    `json:"signatureData"`
	PhotoURL      string    `json:"photoUrl"`
	PhotoStubURL  string    `json:"photoStubUrl"`
	ExtraPhotos   []string  `json:"extraPhotos"`

	FailureReason   string            `json:"failureReason"`
	ReturnType      models.ReturnType `json:"returnType"`
	ReturnItemIdx   []int             `json:"returnItemIdx"`
	ReturnItemsText string            `json:"returnItemsText"`

	GeoLat      *float64  `json:"geoLat"`
	GeoLng      *float64  `json:"geoLng"`
	DeliveredAt time.Time `json:"deliveredAt"`
	Notes       string    `json:"notes"`
}

// SubmitProof validates the capture payload, persists the proof and moves
// the invoice to DELIVERED or FAILED in the same transaction.
func (ds *DeliveryService) SubmitProof(sub ProofSubmission) (*models.DeliveryProof, error) {
	var inv models.Invoice
	if err := ds.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("idx ASC")
	}).First(&inv, "id = ?", sub.InvoiceID).Error; err != nil {
		return nil, err
	}

	var existing models.DeliveryProof
	err := ds.db.First(&existing, "invoice_id = ?", sub.InvoiceID).Error
	if err == nil {
		return nil, models.ErrProofExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Proofs only close active stops; PENDING never jumps straight to a
	// terminal state.
	if inv.Status != models.StatusInProgress {
		return nil, models.ErrInvalidTransition
	}

	proof, newStatus, err := buildProof(&inv, sub)
	if err != nil {
		return nil, err
	}

	txErr := ds.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(proof).Error; err != nil {
			return err
		}
		return tx.Model(&models.Invoice{}).
			Where("id = ?", inv.ID).
			Update("status", newStatus).Error
	})
	if txErr != nil {
		if isDuplicateKeyError(txErr) {
			return nil, models.ErrProofExists
		}
		return nil, txErr
	}

	if newStatus == models.StatusFailed {
		ds.notifier.Publish(models.AdminRecipient, "Falha na Entrega",
			fmt.Sprintf("NF %s retornou: %s", inv.Number, proof.FailureReason),
			models.NotificationWarning)
	} else {
		ds.notifier.Publish(models.AdminRecipient, "Entrega Concluída",
			fmt.Sprintf("NF %s entregue para %s.", inv.Number, proof.ReceiverName),
			models.NotificationSuccess)
	}

	return proof, nil
}

// buildProof validates the submission against the selected flow and
// computes the advisory loss amount.
func buildProof(inv *models.Invoice, sub ProofSubmission) (*models.DeliveryProof, models.DeliveryStatus, error) {
	proof := &models.DeliveryProof{
		InvoiceID:    inv.ID,
		GeoLat:       sub.GeoLat,
		GeoLng:       sub.GeoLng,
		DeliveredAt:  sub.DeliveredAt,
		Notes:        sub.Notes,
		ExtraPhotos:  sub.ExtraPhotos,
		PhotoStubURL: sub.PhotoStubURL,
	}
	if proof.DeliveredAt.IsZero() {
		proof.DeliveredAt = time.Now()
	}

	if sub.FailureReason == "" {
		// Success flow.
		if sub.ReceiverName == "" {
			return nil, "", models.NewValidationError("nome do recebedor é obrigatório")
		}
		if sub.SignatureData == "" && sub.PhotoURL == "" {
			return nil, "", models.NewValidationError("é necessário pelo menos uma assinatura ou foto")
		}
		proof.ReceiverName = sub.ReceiverName
		proof.ReceiverDoc = sub.ReceiverDoc
		proof.SignatureData = sub.SignatureData
		proof.PhotoURL = sub.PhotoURL
		proof.LossAmount = 0
		return proof, models.StatusDelivered, nil
	}

	// Failure flow.
	proof.ReceiverName = "N/A"
	proof.ReceiverDoc = "N/A"
	proof.FailureReason = sub.FailureReason

	switch sub.ReturnType {
	case models.ReturnTotal:
		proof.ReturnType = models.ReturnTotal
		proof.ReturnItems = models.FullReturnItems
		proof.LossAmount = inv.Value
	case models.ReturnPartial:
		proof.ReturnType = models.ReturnPartial
		if len(inv.Items) > 0 {
			if len(sub.ReturnItemIdx) == 0 {
				return nil, "", models.NewValidationError("selecione ao menos um item devolvido")
			}
			lines, loss, err := renderReturnItems(inv.Items, sub.ReturnItemIdx)
			if err != nil {
				return nil, "", err
			}
			proof.ReturnItems = lines
			proof.LossAmount = loss
		} else {
			if strings.TrimSpace(sub.ReturnItemsText) == "" {
				return nil, "", models.NewValidationError("descreva os itens devolvidos")
			}
			proof.ReturnItems = sub.ReturnItemsText
			proof.LossAmount = 0
		}
	default:
		return nil, "", models.NewValidationError("tipo de devolução inválido")
	}

	return proof, models.StatusFailed, nil
}

// renderReturnItems turns the selected item indexes into the text block
// stored on the proof, one "[code] name (qty unit) - value" line each, and
// sums the selected values as loss.
func renderReturnItems(items []models.InvoiceItem, selected []int) (string, float64, error) {
	byIdx := make(map[int]models.InvoiceItem, len(items))
	for _, it := range items {
		byIdx[it.Idx] = it
	}

	var lines []string
	var loss float64
	seen := make(map[int]bool, len(selected))
	for _, idx := range selected {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		it, ok := byIdx[idx]
		if !ok {
			return "", 0, models.NewValidationError("item %d não existe nesta nota", idx)
		}
		qty := strconv.FormatFloat(it.Quantity, 'f', -1, 64)
		lines = append(lines, fmt.Sprintf("[%s] %s (%s %s) - %.2f", it.Code, it.Name, qty, it.Unit, it.Value))
		loss += it.Value
	}
	return strings.Join(lines, "\n"), loss, nil
}

// GetProof fetches the proof for an invoice; gorm.ErrRecordNotFound when
// no proof was submitted yet.
func (ds *DeliveryService) GetProof(invoiceID uuid.UUID) (*models.DeliveryProof, error) {
	var proof models.DeliveryProof
	if err := ds.db.First(&proof, "invoice_id = ?", invoiceID).Error; err != nil {
		return nil, err
	}
	return &proof, nil
}

// DeleteInvoice removes an invoice with its items and proof in one
// transaction.
func (ds *DeliveryService) DeleteInvoice(invoiceID uuid.UUID) error {
	return ds.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.DeliveryProof{}, "invoice_id = ?", invoiceID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.InvoiceItem{}, "invoice_id = ?", invoiceID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, "id = ?", invoiceID).Error
	})
}
