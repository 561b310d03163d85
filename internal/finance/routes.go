package finance

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/finance", func(r chi.Router) {
		r.Get("/aging", h.Aging)
		r.Route("/obligations", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Show)
				r.Delete("/", h.Delete)
				r.Post("/status", h.SetStatus)
				r.Post("/payments", h.RegisterPayment)
			})
		})
		r.Delete("/entries/{id}", h.DeleteEntry)
		r.Get("/contracts/{id}/statement", h.Statement)
	})
}
