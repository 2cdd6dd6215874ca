package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
)

var ErrWebhookReceiptAlreadyExists = errors.New("webhook receipt already exists")

// WebhookReceiptRepository persists one row per webhook batch. Rows are unique
// on (source, signature) so a redelivered batch is recorded once.
type WebhookReceiptRepository struct {
	db DBTX
}

func NewWebhookReceiptRepository(db DBTX) *WebhookReceiptRepository {
	return &WebhookReceiptRepository{db: db}
}

func (r *WebhookReceiptRepository) Create(ctx context.Context, receipt *entity.WebhookReceipt) error {
	query := `
		INSERT INTO webhook_receipts (
			source, signature, payload_json, event_count, payment_id, status, tx_status, error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		receipt.Source,
		receipt.Signature,
		receipt.PayloadJSON,
		receipt.EventCount,
		nullableStringValue(receipt.PaymentID),
		receipt.Status,
		nullableStringValue(receipt.TxStatus),
		nullableStringValue(receipt.Error),
		utc(receipt.CreatedAt),
		utc(receipt.UpdatedAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrWebhookReceiptAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	receipt.ID = uint64(id)

	return nil
}

// MarkProcessed turns a rejected receipt with the same source and signature
// into a processed one. It reports whether a row changed; receipts already
// processed are left alone.
func (r *WebhookReceiptRepository) MarkProcessed(ctx context.Context, receipt *entity.WebhookReceipt) (bool, error) {
	query := `
		UPDATE webhook_receipts
		SET payload_json = ?, event_count = ?, payment_id = ?, status = ?, tx_status = ?, error = NULL, updated_at = ?
		WHERE source = ? AND signature = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		receipt.PayloadJSON,
		receipt.EventCount,
		nullableStringValue(receipt.PaymentID),
		entity.WebhookReceiptProcessed,
		nullableStringValue(receipt.TxStatus),
		utc(receipt.UpdatedAt),
		receipt.Source,
		receipt.Signature,
		entity.WebhookReceiptRejected,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *WebhookReceiptRepository) ListRecent(ctx context.Context, status int32, limit int32) ([]*entity.WebhookReceipt, error) {
	query := `
		SELECT id, source, signature, payload_json, event_count, payment_id, status, tx_status, error, created_at, updated_at
		FROM webhook_receipts
	`
	args := []interface{}{}
	if status > 0 {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.WebhookReceipt, 0)
	for rows.Next() {
		receipt := &entity.WebhookReceipt{}
		if err := scanWebhookReceipt(rows, receipt); err != nil {
			return nil, err
		}
		items = append(items, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// DeleteOlderThan removes at most limit receipts created before the cutoff and
// returns how many were removed.
func (r *WebhookReceiptRepository) DeleteOlderThan(ctx context.Context, before time.Time, limit int32) (int64, error) {
	query := `DELETE FROM webhook_receipts WHERE created_at < ? ORDER BY id ASC LIMIT ?`

	result, err := r.db.ExecContext(ctx, query, utc(before), limit)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanWebhookReceipt(scan rowScanner, receipt *entity.WebhookReceipt) error {
	var (
		paymentID sql.NullString
		txStatus  sql.NullString
		errMsg    sql.NullString
	)

	if err := scan.Scan(
		&receipt.ID,
		&receipt.Source,
		&receipt.Signature,
		&receipt.PayloadJSON,
		&receipt.EventCount,
		&paymentID,
		&receipt.Status,
		&txStatus,
		&errMsg,
		&receipt.CreatedAt,
		&receipt.UpdatedAt,
	); err != nil {
		return err
	}

	receipt.PaymentID = stringPtrFromNull(paymentID)
	receipt.TxStatus = stringPtrFromNull(txStatus)
	receipt.Error = stringPtrFromNull(errMsg)

	return nil
}
