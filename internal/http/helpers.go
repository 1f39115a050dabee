package http

import (
	"html/template"
	"net/http"
	"strings"

	"finsight/internal/core"
)

// formatAmount renders cents for display, signed by transaction type.
func formatAmount(m core.Money, t core.TransactionType) string {
	s := core.FormatCents(m.Cents)
	switch t {
	case core.Expense:
		return "-" + s
	case core.Income:
		return "+" + s
	}
	return s
}

func formatDate(d core.DateTime) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("Jan 2, 2006")
}

// typeClass is the CSS modifier for a transaction type.
func typeClass(t core.TransactionType) string {
	return strings.ToLower(t.String())
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"amount":    formatAmount,
		"date":      formatDate,
		"typeClass": typeClass,
		"txTypes":   core.TransactionTypes,
		"add":       func(a, b int) int { return a + b },
		"deref": func(p *int64) int64 {
			if p == nil {
				return 0
			}
			return *p
		},
	}
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// safeReturnPath keeps only local absolute paths.
func safeReturnPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/dashboard"
	}
	return p
}
