package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/payables_backend/utils"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

func ParseUserRole(s string) (UserRole, error) {
	userRole := map[string]UserRole{
		"admin": UserRoleAdmin,
		"user":  UserRoleUser,
	}
	role, ok := userRole[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", utils.ValidationError("invalid user role %q", s)
	}
	return role, nil
}

// Date is a calendar date stored as DATE and rendered as YYYY-MM-DD.
type Date time.Time

func NewDate(t time.Time) Date {
	return Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
}

func ParseDate(field string, raw string) (Date, error) {
	t, err := utils.ParseDate(field, raw)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

func (d Date) Time() time.Time {
	return time.Time(d)
}

func (d Date) String() string {
	return time.Time(d).Format(utils.DateLayout)
}

func (d Date) Before(other Date) bool {
	return time.Time(d).Before(time.Time(other))
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate("date", s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements the driver.Valuer interface
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements the sql.Scanner interface
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v)
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot convert %T to Date", value)
	}
	return nil
}

func (d *Date) scanString(s string) error {
	if len(s) < len(utils.DateLayout) {
		return fmt.Errorf("cannot convert %q to Date", s)
	}
	t, err := time.Parse(utils.DateLayout, s[:len(utils.DateLayout)])
	if err != nil {
		return err
	}
	*d = NewDate(t)
	return nil
}
