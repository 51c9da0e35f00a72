package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter monta as rotas da API sobre os handlers dados.
func NewRouter(assets *AssetHandler, txs *TransactionHandler, accounts *AccountHandler, feed *FeedHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/assets", func(r chi.Router) {
		r.Get("/", assets.ListAssets)
		r.Get("/{id}", assets.GetAssetByID)
		r.Get("/{id}/tax", assets.GetTax)
		r.Post("/{id}/buy", txs.Buy)
		r.Post("/{id}/credit", txs.Credit)
	})
	r.Post("/calldata/decode", txs.DecodeCalldata)

	r.Get("/accounts/{address}/assets", accounts.GetAccountAssets)
	r.Get("/status", accounts.GetStatus)
	r.Put("/session", accounts.SetSession)

	if feed != nil {
		r.Get("/feed", feed.Stream)
	}
	return r
}
