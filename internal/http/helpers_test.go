package http

import (
	"testing"

	"finsight/internal/core"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		cents int64
		typ   core.TransactionType
		want  string
	}{
		{1234, core.Expense, "-12.34"},
		{1234, core.Income, "+12.34"},
		{5, core.Transfer, "0.05"},
	}
	for _, tt := range tests {
		if got := formatAmount(core.Money{Cents: tt.cents}, tt.typ); got != tt.want {
			t.Errorf("formatAmount(%d, %s) = %q, want %q", tt.cents, tt.typ, got, tt.want)
		}
	}
}

func TestSafeReturnPath(t *testing.T) {
	tests := map[string]string{
		"":                     "/dashboard",
		"/transactions?page=2": "/transactions?page=2",
		"https://evil.example": "/dashboard",
		"//evil.example":       "/dashboard",
		"/\\evil.example":      "/dashboard",
		"relative":             "/dashboard",
	}
	for in, want := range tests {
		if got := safeReturnPath(in); got != want {
			t.Errorf("safeReturnPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTemplatesParse(t *testing.T) {
	srv := newTestServer(t, "http://backend.test")
	for _, name := range []string{
		"index.html", "dashboard.html", "transactions.html", "categories.html", "error.html",
		"profile_form", "transaction_list", "category_list", "pagination",
	} {
		if srv.templates.Lookup(name) == nil {
			t.Errorf("template %q not defined", name)
		}
	}
}
