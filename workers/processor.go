// Package workers runs background jobs against the request tables of the
// store.
package workers

import (
	"time"

	"gorm.io/gorm"
)

// result counts the requests handled by one pass of process.
type result struct {
	Done, Failed int
}

// process makes one pass through the requests matching scope, calling fn for
// each one. A request for which fn fails is kept, with the failure recorded
// against it; a request for which fn succeeds is deleted.
func process[T any](db *gorm.DB, scope func(*gorm.DB) *gorm.DB, fn func(*gorm.DB, T) error) (result, error) {
	var res result
	var requests []T
	err := db.Scopes(scope).FindInBatches(&requests, 100, func(db *gorm.DB, batch int) error {
		for _, request := range requests {
			start := time.Now()
			if err := fn(db, request); err != nil {
				res.Failed++
				if err := db.Model(request).UpdateColumns(map[string]any{
					"attempts":     gorm.Expr("attempts + 1"),
					"last_attempt": start,
					"last_result":  err.Error(),
				}).Error; err != nil {
					return err
				}
				continue
			}
			res.Done++
			if err := db.Delete(request).Error; err != nil {
				return err
			}
		}
		return nil
	}).Error
	return res, err
}
