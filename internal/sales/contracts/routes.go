package contracts

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/contracts", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/from-quote/{quoteID}", h.CreateFromQuote)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Show)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/status", h.Transition)
			r.Post("/items", h.AddItem)
			r.Patch("/items/{index}", h.UpdateItem)
			r.Delete("/items/{index}", h.RemoveItem)
		})
	})
}
