package local

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studia/internal/apperr"
	"studia/internal/backend"
)

var tableModels = map[string]any{
	backend.TableActivities: &activityRow{},
	backend.TableUsers:      &profileRow{},
}

func (b *Backend) table(ctx context.Context, op, name string) (*gorm.DB, error) {
	if _, ok := tableModels[name]; !ok {
		return nil, apperr.New(apperr.ErrBackend, op, fmt.Sprintf("Unknown table %q.", name))
	}
	return b.db.WithContext(ctx).Table(name), nil
}

func applyQuery(tx *gorm.DB, q backend.Query) *gorm.DB {
	for _, f := range q.Filters {
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: f.Column}, Value: f.Value})
	}
	if q.Order != nil {
		tx = tx.Order(clause.OrderByColumn{
			Column: clause.Column{Name: q.Order.Column},
			Desc:   !q.Order.Ascending,
		})
	}
	return tx
}

func (b *Backend) Select(ctx context.Context, table string, q backend.Query, dest any) error {
	tx, err := b.table(ctx, "select", table)
	if err != nil {
		return err
	}
	if err := applyQuery(tx, q).Find(dest).Error; err != nil {
		return apperr.Backend("select "+table, err)
	}
	return nil
}

func (b *Backend) SelectOne(ctx context.Context, table string, q backend.Query, dest any) (bool, error) {
	tx, err := b.table(ctx, "select", table)
	if err != nil {
		return false, err
	}
	res := applyQuery(tx, q).Limit(1).Find(dest)
	if res.Error != nil {
		return false, apperr.Backend("select "+table, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Insert assigns id and created_at like the hosted database does, then reads
// the stored row back into dest when dest is non-nil.
func (b *Backend) Insert(ctx context.Context, table string, row map[string]any, dest any) error {
	tx, err := b.table(ctx, "insert", table)
	if err != nil {
		return err
	}
	values := copyRow(row)
	id, _ := values["id"].(string)
	if id == "" {
		id = uuid.NewString()
		values["id"] = id
	}
	if table == backend.TableActivities {
		if _, ok := values["created_at"]; !ok {
			values["created_at"] = b.now().UTC()
		}
		if _, ok := values["done"]; !ok {
			values["done"] = false
		}
	}

	if err := tx.Create(values).Error; err != nil {
		return apperr.Backend("insert "+table, err)
	}
	if dest == nil {
		return nil
	}
	if err := b.db.WithContext(ctx).Table(table).Where("id = ?", id).Take(dest).Error; err != nil {
		return apperr.Backend("insert "+table, err)
	}
	return nil
}

func (b *Backend) Update(ctx context.Context, table string, q backend.Query, fields map[string]any) error {
	tx, err := b.table(ctx, "update", table)
	if err != nil {
		return err
	}
	if len(q.Filters) == 0 {
		return backend.ErrUnfiltered
	}
	if len(fields) == 0 {
		return nil
	}
	if err := applyQuery(tx, backend.Query{Filters: q.Filters}).Updates(copyRow(fields)).Error; err != nil {
		return apperr.Backend("update "+table, err)
	}
	return nil
}

func (b *Backend) Upsert(ctx context.Context, table string, row map[string]any, conflictKey string) error {
	tx, err := b.table(ctx, "upsert", table)
	if err != nil {
		return err
	}
	if conflictKey == "" {
		conflictKey = "id"
	}
	values := copyRow(row)
	if table == backend.TableUsers {
		values["updated_at"] = b.now().UTC()
	}

	cols := make([]string, 0, len(values))
	for col := range values {
		if col != conflictKey {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)

	onConflict := clause.OnConflict{Columns: []clause.Column{{Name: conflictKey}}}
	if len(cols) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.AssignmentColumns(cols)
	}
	if err := tx.Clauses(onConflict).Create(values).Error; err != nil {
		return apperr.Backend("upsert "+table, err)
	}
	return nil
}

// Delete is idempotent; a query matching no rows is not an error.
func (b *Backend) Delete(ctx context.Context, table string, q backend.Query) error {
	model, ok := tableModels[table]
	if !ok {
		return apperr.New(apperr.ErrBackend, "delete", fmt.Sprintf("Unknown table %q.", table))
	}
	if len(q.Filters) == 0 {
		return backend.ErrUnfiltered
	}
	tx := applyQuery(b.db.WithContext(ctx), backend.Query{Filters: q.Filters})
	if err := tx.Delete(model).Error; err != nil {
		return apperr.Backend("delete "+table, err)
	}
	return nil
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
