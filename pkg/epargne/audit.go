package epargne

import "database/sql"

// logOperation appends an audit record. Audit writes are best-effort;
// they never fail the operation they describe.
func (c *Core) logOperation(operation, entity string, entityID *int64, detail *string) {
	_, err := c.db.Exec(`
		INSERT INTO operation_logs (operation, entity, entity_id, detail)
		VALUES (?, ?, ?, ?)`,
		operation, entity, entityID, detail)
	if err != nil {
		c.logger.Warn("audit write failed", "operation", operation, "err", err)
	}
}

// ListOperationLogs returns the newest audit records, capped at limit
// (default 100).
func (c *Core) ListOperationLogs(limit int) ([]OperationLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := c.db.Query(`
		SELECT id, operation, entity, entity_id, detail, created_at
		FROM operation_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list operation logs", err)
	}
	defer rows.Close()

	var logs []OperationLog
	for rows.Next() {
		var l OperationLog
		var entity, detail, createdAt sql.NullString
		var entityID sql.NullInt64
		if err := rows.Scan(&l.ID, &l.Operation, &entity, &entityID, &detail, &createdAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan operation log", err)
		}
		l.Entity = nullStringPtr(entity)
		l.EntityID = nullInt64Ptr(entityID)
		l.Detail = nullStringPtr(detail)
		l.CreatedAt = nullStringPtr(createdAt)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
