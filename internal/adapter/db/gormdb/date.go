package gormdb

import (
	"database/sql/driver"
	"fmt"
	"time"

	domain "usuarios-service/internal/domain/user"
)

// Date is a calendar date column. It is written as YYYY-MM-DD and accepts the
// time.Time, string or []byte values the different drivers hand back.
type Date time.Time

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return time.Time(d).Format(domain.DateLayout), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = Date(domain.Truncate(v))
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) parse(s string) error {
	if len(s) >= len(domain.DateLayout) {
		s = s[:len(domain.DateLayout)]
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return err
	}
	*d = Date(t)
	return nil
}
