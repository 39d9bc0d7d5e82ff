package handlers

import (
	"foodshare/internal/config"
	"foodshare/internal/gallery"
	"foodshare/internal/media"
	"foodshare/internal/payment"
	"foodshare/internal/repos"
	"foodshare/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	CatalogHandler *CatalogHandler
	SearchHandler  *SearchHandler
	ListingHandler *ListingHandler
	SavedHandler   *SavedHandler
	ProfileHandler *ProfileHandler
	UpgradeHandler *UpgradeHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, auth *services.AuthService, uploader *media.Uploader, verifier payment.Verifier) *Deps {
	catRepo := repos.NewCategoryRepo(db)
	listRepo := repos.NewListingRepo(db)
	userRepo := repos.NewUserRepo(db)
	savedRepo := repos.NewSavedRepo(db)

	previews := gallery.NewPreviewStore(cfg.PreviewDir)

	catalogSvc := services.NewCatalogService(catRepo, listRepo)
	listingSvc := services.NewListingService(listRepo, catRepo)
	savedSvc := services.NewSavedService(savedRepo)
	upgradeSvc := services.NewUpgradeService(userRepo, uploader, verifier, previews, cfg.PaymentDelay)

	return &Deps{
		CatalogHandler: &CatalogHandler{Catalog: catalogSvc},
		SearchHandler:  &SearchHandler{Catalog: catalogSvc},
		ListingHandler: &ListingHandler{
			Listings:  listingSvc,
			Catalog:   catalogSvc,
			Uploader:  uploader,
			Previews:  previews,
			Collector: newCollectorRegistry(),
		},
		SavedHandler:   &SavedHandler{Saved: savedSvc},
		ProfileHandler: &ProfileHandler{Users: userRepo},
		UpgradeHandler: &UpgradeHandler{Upgrades: upgradeSvc, Auth: auth},
	}
}
