package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"INCOME", Income, true},
		{"expense", Expense, true},
		{" Transfer ", Transfer, true},
		{"refund", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestUserUpdateValidate(t *testing.T) {
	if err := (UserUpdate{Name: "Alice", Email: "a@x.com"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []struct {
		u    UserUpdate
		want error
	}{
		{UserUpdate{Name: " ", Email: "a@x.com"}, ErrEmptyName},
		{UserUpdate{Name: "Alice", Email: ""}, ErrEmptyEmail},
		{UserUpdate{Name: "Alice", Email: "not-an-email"}, ErrInvalidEmail},
	}
	for i, tc := range bads {
		if err := tc.u.Validate(); err != tc.want {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Description: "Groceries",
		Amount:      Money{Cents: 1250},
		Date:        NewDateTime(2025, 3, 1),
		Type:        Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Description: "", Amount: Money{Cents: 1}, Date: NewDateTime(2025, 1, 1), Type: Income},
		{Description: "a", Amount: Money{Cents: 0}, Date: NewDateTime(2025, 1, 1), Type: Income},
		{Description: "a", Amount: Money{Cents: 1}, Type: Income},
		{Description: "a", Amount: Money{Cents: 1}, Date: NewDateTime(2025, 1, 1), Type: "GIFT"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	if err := (Category{Name: "Food"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Category{Name: "  "}).Validate(); err != ErrEmptyCategoryName {
		t.Fatalf("expected ErrEmptyCategoryName, got %v", err)
	}
}

func TestTransactionJSON(t *testing.T) {
	body := `{"id":7,"description":"Rent","amount":950.00,"date":"2025-02-01T09:30:00","type":"EXPENSE","categoryId":3,"categoryName":"Housing"}`
	var tx Transaction
	if err := json.Unmarshal([]byte(body), &tx); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if tx.ID == nil || *tx.ID != 7 {
		t.Fatalf("ID = %v", tx.ID)
	}
	if tx.Amount.Cents != 95000 {
		t.Fatalf("Amount = %d", tx.Amount.Cents)
	}
	want := time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)
	if !tx.Date.Equal(want) {
		t.Fatalf("Date = %v, want %v", tx.Date, want)
	}
	if tx.CategoryID == nil || *tx.CategoryID != 3 || tx.CategoryName != "Housing" {
		t.Fatalf("category = %v %q", tx.CategoryID, tx.CategoryName)
	}

	out, err := json.Marshal(Transaction{
		Description: "Salary",
		Amount:      Money{Cents: 300000},
		Date:        NewDateTime(2025, 1, 31),
		Type:        Income,
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	wantJSON := `{"description":"Salary","amount":3000.00,"date":"2025-01-31T00:00:00","type":"INCOME"}`
	if string(out) != wantJSON {
		t.Fatalf("Marshal = %s\nwant      %s", out, wantJSON)
	}
}

func TestPageNavigation(t *testing.T) {
	p := Page[Category]{TotalPages: 3, Number: 1}
	if !p.HasNext() || !p.HasPrevious() {
		t.Fatalf("middle page should have both neighbours")
	}
	last := Page[Category]{TotalPages: 3, Number: 2}
	if last.HasNext() {
		t.Fatalf("last page has no next")
	}
	empty := Page[Category]{}
	if empty.HasNext() || empty.HasPrevious() {
		t.Fatalf("empty page has no neighbours")
	}
}
