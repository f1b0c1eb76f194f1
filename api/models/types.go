package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Dialect constants for database type detection
const (
	dialectPostgres  = "postgres"
	dialectMySQL     = "mysql"
	dialectSQLServer = "sqlserver"
	dialectSQLite    = "sqlite"
)

// Point is one vertex of a freehand stroke
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointList stores stroke vertices as a JSON array
type PointList []Point

// GormDBDataType returns dialect-specific column types
func (PointList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Name() {
	case dialectPostgres:
		return "JSONB"
	case dialectMySQL:
		return "LONGTEXT"
	case dialectSQLServer:
		return "NVARCHAR(MAX)"
	case dialectSQLite:
		return "TEXT"
	default:
		return "TEXT"
	}
}

// Value implements the driver.Valuer interface. A nil list is stored as NULL.
func (p PointList) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Scan implements the sql.Scanner interface
func (p *PointList) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into PointList", value)
	}

	if len(bytes) == 0 {
		*p = nil
		return nil
	}
	return json.Unmarshal(bytes, p)
}
