/*-------------------------------------------------------------------------
 *
 * jsonb.go
 *    JSONB column mapping
 *
 * JSONBMap maps PostgreSQL jsonb columns to map[string]interface{} for
 * sqlx scans and inserts.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/db/jsonb.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

/* JSONBMap is a map stored as a jsonb column */
type JSONBMap map[string]interface{}

/* Value implements driver.Valuer */
func (m JSONBMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("jsonb marshal failed: error=%w", err)
	}
	return data, nil
}

/* Scan implements sql.Scanner */
func (m *JSONBMap) Scan(src interface{}) error {
	if src == nil {
		*m = make(JSONBMap)
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb scan failed: unsupported_type=%T", src)
	}

	if len(data) == 0 {
		*m = make(JSONBMap)
		return nil
	}
	return json.Unmarshal(data, m)
}
