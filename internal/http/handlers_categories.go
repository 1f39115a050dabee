package http

import (
	"context"
	"net/http"
	"sync/atomic"

	"finsight/internal/api"
	"finsight/internal/core"
	"finsight/internal/log"
	"finsight/internal/reqstate"
)

const categoryListTarget = "category-list"

type categoryList struct {
	State reqstate.State[core.Page[core.Category]]
	Page  api.PageRequest
}

func (l categoryList) PageURL(page int) string {
	return "/categories?" + api.PageRequest{Page: page, Size: l.Page.Size}.Query().Encode()
}

func (l categoryList) ListURL() string {
	return l.PageURL(l.Page.Page)
}

func (l categoryList) Target() string { return categoryListTarget }

type categoriesPage struct {
	page
	List categoryList
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	pageReq := ParsePageRequest(r.URL.Query())
	log.FromContext(r.Context()).DebugContext(r.Context(), "Listing categories",
		log.NewFields().
			WithOperation(log.OpList).
			WithPage(pageReq.Page, pageReq.Size).
			ToSlice()...)
	list := reqstate.New(s.client.GetCategories)

	_, err := list.Execute(r.Context(), pageReq)
	if isHTMX(r) && r.Header.Get("HX-Target") == categoryListTarget {
		if err != nil {
			s.handleAPIError(w, r, err, log.ComponentCategory, log.OpList)
			return
		}
		s.renderPartial(w, r, NewHTMXResponse(), "category_list",
			categoryList{State: list.State(), Page: pageReq})
		return
	}

	status := http.StatusOK
	if apiErr := list.State().Err; apiErr != nil {
		if api.IsUnauthorized(apiErr) {
			s.respondFormError(w, r, apiErr, "", nil)
			return
		}
		s.backendFailed(r, apiErr, log.ComponentCategory, log.OpList)
		status = errorStatus(apiErr)
	}

	s.render(w, r, status, "categories.html", categoriesPage{
		page: s.newPage(r, "Categories", "categories"),
		List: categoryList{State: list.State(), Page: pageReq},
	})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p, perr := s.parseForm(r)
	if perr != nil {
		s.respondFormError(w, r, perr, "", nil)
		return
	}
	c, err := ParseCategory(p)
	if err != nil {
		s.respondFormError(w, r, validationError(err), "", nil)
		return
	}

	atomic.AddInt64(&s.appMetrics.formSubmissions, 1)

	ctrl := reqstate.New(s.client.CreateCategory)
	created, err := ctrl.Execute(r.Context(), c)
	if err != nil {
		apiErr := ctrl.State().Err
		s.backendFailed(r, apiErr, log.ComponentCategory, log.OpCreate)
		s.respondFormError(w, r, apiErr, "", nil)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Category created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithResource("category", created.ID).
			ToSlice()...)

	respondChanged(w, r, "categories", "Category saved", "/categories")
}

type categoryUpdate struct {
	ID       int64
	Category core.Category
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		s.respondFormError(w, r, notFound("Category not found"), "", nil)
		return
	}
	p, perr := s.parseForm(r)
	if perr != nil {
		s.respondFormError(w, r, perr, "", nil)
		return
	}
	c, err := ParseCategory(p)
	if err != nil {
		s.respondFormError(w, r, validationError(err), "", nil)
		return
	}

	atomic.AddInt64(&s.appMetrics.formSubmissions, 1)

	client := s.client
	ctrl := reqstate.New(func(ctx context.Context, u categoryUpdate) (core.Category, error) {
		return client.UpdateCategory(ctx, u.ID, u.Category)
	})
	if _, err := ctrl.Execute(r.Context(), categoryUpdate{ID: id, Category: c}); err != nil {
		apiErr := ctrl.State().Err
		s.backendFailed(r, apiErr, log.ComponentCategory, log.OpUpdate)
		s.respondFormError(w, r, apiErr, "", nil)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Category updated",
		log.NewFields().
			WithOperation(log.OpUpdate).
			WithResource("category", &id).
			ToSlice()...)

	respondChanged(w, r, "categories", "Category updated", "/categories")
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		s.respondFormError(w, r, notFound("Category not found"), "", nil)
		return
	}

	atomic.AddInt64(&s.appMetrics.formSubmissions, 1)

	client := s.client
	ctrl := reqstate.New(func(ctx context.Context, id int64) (struct{}, error) {
		return struct{}{}, client.DeleteCategory(ctx, id)
	})
	if _, err := ctrl.Execute(r.Context(), id); err != nil {
		apiErr := ctrl.State().Err
		s.backendFailed(r, apiErr, log.ComponentCategory, log.OpDelete)
		s.respondFormError(w, r, apiErr, "", nil)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Category deleted",
		log.NewFields().
			WithOperation(log.OpDelete).
			WithResource("category", &id).
			ToSlice()...)

	respondChanged(w, r, "categories", "Category deleted", "/categories")
}
