package epargne

import (
	"database/sql"
	"strings"
)

// AddCategory creates a new account class.
func (c *Core) AddCategory(name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, NewError(ErrCodeInvalidParameters, "category name is required")
	}
	var existing int64
	err := c.db.QueryRow("SELECT id FROM categories WHERE name = ?", name).Scan(&existing)
	if err == nil {
		return 0, Errorf(ErrCodeDuplicate, "category %q already exists", name)
	}
	if err != sql.ErrNoRows {
		return 0, WrapError(ErrCodeDatabase, "lookup category", err)
	}
	result, err := c.db.Exec("INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "insert category", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "category id", err)
	}
	return id, nil
}

// ListCategories returns all categories ordered by name.
func (c *Core) ListCategories() ([]Category, error) {
	rows, err := c.db.Query("SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list categories", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan category", err)
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

// DeleteCategory removes a category. Refused while any simulation still
// references it.
func (c *Core) DeleteCategory(name string) error {
	var id int64
	err := c.db.QueryRow("SELECT id FROM categories WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return Errorf(ErrCodeNotFound, "category %q not found", name)
	}
	if err != nil {
		return WrapError(ErrCodeDatabase, "lookup category", err)
	}

	var used int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM simulations WHERE category_id = ?", id).Scan(&used); err != nil {
		return WrapError(ErrCodeDatabase, "count category references", err)
	}
	if used > 0 {
		return Errorf(ErrCodeInvalidParameters, "category %q is referenced by %d simulation(s)", name, used)
	}

	if _, err := c.db.Exec("DELETE FROM categories WHERE id = ?", id); err != nil {
		return WrapError(ErrCodeDatabase, "delete category", err)
	}
	return nil
}

func (c *Core) categoryIDByName(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM categories WHERE name = ?", strings.TrimSpace(name)).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, Errorf(ErrCodeInvalidParameters, "unknown category: %s", name)
	}
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "lookup category", err)
	}
	return id, nil
}
