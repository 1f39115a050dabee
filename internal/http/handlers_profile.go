package http

import (
	"context"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"finsight/internal/api"
	"finsight/internal/core"
	"finsight/internal/log"
	"finsight/internal/reqstate"
)

const recentTransactions = 5

// profileForm backs the "profile_form" template.
type profileForm struct {
	User  core.User
	Err   *api.APIError
	Saved bool
}

// FieldError returns the validation message for one input, if any.
func (f profileForm) FieldError(field string) string {
	return f.Err.FieldError(field)
}

type dashboardPage struct {
	page
	Profile      profileForm
	Transactions reqstate.State[core.Page[core.Transaction]]
	Categories   reqstate.State[core.Page[core.Category]]
}

// handleDashboard loads the profile, the latest transactions and the
// categories concurrently. Only the profile is required; the other sections
// render their own error.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	client := s.client

	profile := reqstate.New(reqstate.Bind0(client.GetCurrentUser))
	transactions := reqstate.New(client.GetTransactions)
	categories := reqstate.New(client.GetCategories)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		_, err := profile.Execute(ctx, reqstate.NoArgs{})
		return err
	})
	g.Go(func() error {
		_, _ = transactions.Execute(ctx, api.PageRequest{Size: recentTransactions})
		return nil
	})
	g.Go(func() error {
		_, _ = categories.Execute(ctx, api.PageRequest{Size: maxPageSize})
		return nil
	})
	if err := g.Wait(); err != nil {
		s.handleAPIError(w, r, err, log.ComponentProfile, log.OpRead)
		return
	}

	for name, st := range map[string]*api.APIError{
		log.ComponentTx:       transactions.State().Err,
		log.ComponentCategory: categories.State().Err,
	} {
		if st != nil {
			s.backendFailed(r, st, name, log.OpList)
		}
	}

	s.render(w, r, http.StatusOK, "dashboard.html", dashboardPage{
		page:         s.newPage(r, "Dashboard", "dashboard"),
		Profile:      profileForm{User: profile.State().Data},
		Transactions: transactions.State(),
		Categories:   categories.State(),
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, perr := s.parseForm(r)
	if perr != nil {
		s.respondFormError(w, r, perr, "", nil)
		return
	}
	update, err := ParseUserUpdate(p)
	if err != nil {
		s.respondFormError(w, r, validationError(err), "profile_form", profileForm{
			User: core.User{Name: update.Name, Email: update.Email},
			Err:  validationError(err),
		})
		return
	}

	atomic.AddInt64(&s.appMetrics.formSubmissions, 1)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentProfile)

	ctrl := reqstate.New(s.client.UpdateCurrentUser,
		reqstate.OnSuccess(func(u core.User) {
			logger.InfoContext(r.Context(), "Profile updated",
				log.FieldOperation, log.OpUpdate)
		}),
	)
	user, err := ctrl.Execute(r.Context(), update)
	if err != nil {
		apiErr := ctrl.State().Err
		s.backendFailed(r, apiErr, log.ComponentProfile, log.OpUpdate)
		s.respondFormError(w, r, apiErr, "profile_form", profileForm{
			User: core.User{Name: update.Name, Email: update.Email},
			Err:  apiErr,
		})
		return
	}

	if !isHTMX(r) {
		redirectAfterPost(w, r, "/dashboard")
		return
	}
	s.renderPartial(w, r,
		NewHTMXResponse().
			TriggerChanged("profile").
			TriggerSuccessNotification("Profile updated"),
		"profile_form", profileForm{User: user, Saved: true})
}

// handleDeleteProfile removes the account and then ends the provider session.
func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.appMetrics.formSubmissions, 1)

	ctrl := reqstate.New(reqstate.Bind0(func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.client.DeleteCurrentUser(ctx)
	}))
	if _, err := ctrl.Execute(r.Context(), reqstate.NoArgs{}); err != nil {
		apiErr := ctrl.State().Err
		s.backendFailed(r, apiErr, log.ComponentProfile, log.OpDelete)
		s.respondFormError(w, r, apiErr, "", nil)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Account deleted",
		log.FieldOperation, log.OpDelete)

	if isHTMX(r) {
		NewHTMXResponse().Redirect(logoutRoute).Write(w)
		return
	}
	redirectAfterPost(w, r, logoutRoute)
}
