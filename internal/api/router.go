package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/pkg/metrics"
)

func NewRouter(h *Handler, mw *Middleware) http.Handler {
	router := chi.NewRouter()
	router.Use(mw.Log, mw.Recover, mw.Cors, mw.WithIP, metrics.Instrument)

	router.Handle("/metrics", metrics.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/session", h.StartSession)
		r.Get("/navigation/roles", h.Roles)
		r.Post("/leads/inquiry", h.AddInquiry)

		r.With(mw.OptionalSession).Post("/assistant/chat", h.Chat)

		r.Group(func(r chi.Router) {
			r.Use(mw.Session)

			r.Get("/session", h.Session)
			r.Post("/session/role", h.RequestRole)
			r.Post("/session/signout", h.SignOut)
			r.Put("/session/screen", h.SelectScreen)
			r.Get("/navigation", h.Navigation)

			r.Get("/notifications", h.Notification)
			r.Delete("/notifications", h.DismissNotification)

			r.Route("/verification", func(r chi.Router) {
				r.Use(mw.RateLimit)

				r.Get("/", h.VerificationState)
				r.Post("/challenge", h.SubmitChallenge)
				r.Post("/challenge/refresh", h.RefreshChallenge)
				r.Put("/digits/{index}", h.EnterDigit)
				r.Post("/code", h.SubmitOneTimeCode)
				r.Post("/resend", h.ResendCode)
				r.Post("/cancel", h.CancelVerification)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Use(mw.RequireScreen(entity.ScreenDashboard))

				r.Get("/metrics", h.DashboardMetrics)
				r.Get("/insights", h.Insights)
			})

			r.Route("/leads", func(r chi.Router) {
				r.Use(mw.RequireScreen(entity.ScreenLeads))

				r.Get("/", h.Leads)
				r.Post("/score", h.ScoreLeads)
				r.Post("/{id}/advance", h.AdvanceLead)
				r.Post("/{id}/message", h.SendLeadMessage)
				r.Get("/{id}/summary", h.LeadSummary)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Use(mw.RequireScreen(entity.ScreenInventory))

				r.Get("/", h.Inventory)
				r.Get("/heatmap", h.InventoryHeatmap)
				r.Put("/{id}/status", h.UpdatePropertyStatus)
				r.Post("/{id}/publish", h.PublishToWeb)
				r.Get("/{id}/landmarks", h.Landmarks)
			})

			r.With(mw.RequireScreen(entity.ScreenAssetStudio)).Post("/assets/edit", h.EditImage)
			r.With(mw.RequireScreen(entity.ScreenAssetStudio)).Post("/assets/analyze", h.AnalyzeImage)
			r.With(mw.RequireScreen(entity.ScreenVideoStudio)).Post("/videos/analyze", h.AnalyzeVideo)

			r.Route("/legacy", func(r chi.Router) {
				r.Use(mw.RequireScreen(entity.ScreenLegacyHub))

				r.Get("/", h.LegacyOverview)
				r.Post("/sub-dealers", h.OnboardSubDealer)
				r.Post("/mentor", h.LegacyMentor)
			})

			r.With(mw.RequireScreen(entity.ScreenPartners)).Get("/partners", h.PartnerBoard)
			r.With(mw.RequireScreen(entity.ScreenCustomer)).Get("/customer/asset", h.CustomerAsset)
		})
	})

	return router
}
