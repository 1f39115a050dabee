package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"finsight/internal/core"
)

const transactionsPath = "/api/transactions"

func transactionPath(id int64) string {
	return transactionsPath + "/" + strconv.FormatInt(id, 10)
}

// GetTransactions lists the user's transactions.
func (c *Client) GetTransactions(ctx context.Context, page PageRequest) (core.Page[core.Transaction], error) {
	var out core.Page[core.Transaction]
	err := c.Do(ctx, transactionsPath, &RequestOptions{Query: page.Query()}, &out)
	return out, err
}

func (c *Client) GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	var out core.Transaction
	err := c.Do(ctx, transactionPath(id), nil, &out)
	return out, err
}

func (c *Client) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	var out core.Transaction
	err := c.Do(ctx, transactionsPath, &RequestOptions{Method: http.MethodPost, Body: tx}, &out)
	return out, err
}

func (c *Client) UpdateTransaction(ctx context.Context, id int64, tx core.Transaction) (core.Transaction, error) {
	var out core.Transaction
	err := c.Do(ctx, transactionPath(id), &RequestOptions{Method: http.MethodPut, Body: tx}, &out)
	return out, err
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.Do(ctx, transactionPath(id), &RequestOptions{Method: http.MethodDelete}, nil)
}

// GetTransactionsByType lists transactions of one type.
func (c *Client) GetTransactionsByType(ctx context.Context, txType core.TransactionType, page PageRequest) (core.Page[core.Transaction], error) {
	var out core.Page[core.Transaction]
	path := transactionsPath + "/type/" + url.PathEscape(txType.String())
	err := c.Do(ctx, path, &RequestOptions{Query: page.Query()}, &out)
	return out, err
}

// GetTransactionsByDateRange lists transactions dated between start and end.
// Both bounds travel as ISO local date-times.
func (c *Client) GetTransactionsByDateRange(ctx context.Context, start, end core.DateTime, page PageRequest) (core.Page[core.Transaction], error) {
	var out core.Page[core.Transaction]
	q := page.Query()
	q.Set("startDate", start.String())
	q.Set("endDate", end.String())
	err := c.Do(ctx, transactionsPath+"/date-range", &RequestOptions{Query: q}, &out)
	return out, err
}

// GetTransactionsByCategory lists transactions filed under one category.
func (c *Client) GetTransactionsByCategory(ctx context.Context, categoryID int64, page PageRequest) (core.Page[core.Transaction], error) {
	var out core.Page[core.Transaction]
	path := transactionsPath + "/category/" + strconv.FormatInt(categoryID, 10)
	err := c.Do(ctx, path, &RequestOptions{Query: page.Query()}, &out)
	return out, err
}
