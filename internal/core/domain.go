package core

import (
	"errors"
	"strings"

	"github.com/badoux/checkmail"
)

const (
	Income   TransactionType = "INCOME"
	Expense  TransactionType = "EXPENSE"
	Transfer TransactionType = "TRANSFER"
)

type (
	TransactionType string

	// User mirrors the backend's profile representation.
	User struct {
		ID    *int64 `json:"id,omitempty"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	// UserUpdate is the body accepted by PUT /api/users/me.
	UserUpdate struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	Transaction struct {
		ID           *int64          `json:"id,omitempty"`
		Description  string          `json:"description"`
		Amount       Money           `json:"amount"`
		Date         DateTime        `json:"date"`
		Type         TransactionType `json:"type"`
		CategoryID   *int64          `json:"categoryId,omitempty"`
		CategoryName string          `json:"categoryName,omitempty"`
		Notes        string          `json:"notes,omitempty"`
	}

	Category struct {
		ID          *int64 `json:"id,omitempty"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}

	// Page is the paginated envelope returned by every list endpoint.
	Page[T any] struct {
		Content       []T   `json:"content"`
		TotalElements int64 `json:"totalElements"`
		TotalPages    int   `json:"totalPages"`
		Size          int   `json:"size"`
		Number        int   `json:"number"`
	}
)

var (
	ErrEmptyName         = errors.New("name is required")
	ErrEmptyEmail        = errors.New("email is required")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrEmptyDescription  = errors.New("description is required")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidDate       = errors.New("date is required")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrEmptyCategoryName = errors.New("category name is required")
)

// TransactionTypes lists every type the backend accepts, in display order.
func TransactionTypes() []TransactionType {
	return []TransactionType{Income, Expense, Transfer}
}

// ParseTransactionType accepts the enum name in any letter case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

func (u UserUpdate) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if err := checkmail.ValidateFormat(strings.TrimSpace(u.Email)); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 255 {
		return errors.New("description too long (max 255 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	if len(c.Name) > 100 {
		return errors.New("category name too long (max 100 characters)")
	}
	return nil
}

// HasNext reports whether a page after this one exists.
func (p Page[T]) HasNext() bool {
	return p.Number+1 < p.TotalPages
}

// HasPrevious reports whether a page before this one exists.
func (p Page[T]) HasPrevious() bool {
	return p.Number > 0
}
