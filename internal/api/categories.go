package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"finsight/internal/core"
)

const categoriesPath = "/api/categories"

func categoryPath(id int64) string {
	return categoriesPath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) GetCategories(ctx context.Context, page PageRequest) (core.Page[core.Category], error) {
	var out core.Page[core.Category]
	err := c.Do(ctx, categoriesPath, &RequestOptions{Query: page.Query()}, &out)
	return out, err
}

func (c *Client) GetCategoryByID(ctx context.Context, id int64) (core.Category, error) {
	var out core.Category
	err := c.Do(ctx, categoryPath(id), nil, &out)
	return out, err
}

// GetCategoryByName looks a category up by its exact name.
func (c *Client) GetCategoryByName(ctx context.Context, name string) (core.Category, error) {
	var out core.Category
	err := c.Do(ctx, categoriesPath+"/name/"+url.PathEscape(name), nil, &out)
	return out, err
}

func (c *Client) CreateCategory(ctx context.Context, category core.Category) (core.Category, error) {
	var out core.Category
	err := c.Do(ctx, categoriesPath, &RequestOptions{Method: http.MethodPost, Body: category}, &out)
	return out, err
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, category core.Category) (core.Category, error) {
	var out core.Category
	err := c.Do(ctx, categoryPath(id), &RequestOptions{Method: http.MethodPut, Body: category}, &out)
	return out, err
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.Do(ctx, categoryPath(id), &RequestOptions{Method: http.MethodDelete}, nil)
}
