// Package repository implements the domain repository interfaces on top of
// gorm and postgres.
package repository

import (
	"context"
	"errors"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"gorm.io/gorm"
)

type txKey struct{}

// TxManager runs fn inside a database transaction. Repositories called with
// the ctx passed to fn join that transaction.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}

// paginate normalises page and size and applies LIMIT/OFFSET.
func paginate(page, pageSize int) (func(*gorm.DB) *gorm.DB, int, int) {
	page, pageSize = domain.NormalizePaging(page, pageSize)
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}, page, pageSize
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
