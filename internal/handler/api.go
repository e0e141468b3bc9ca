package handler

import (
	"github.com/habitribe/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	habits    *service.HabitService
	entries   *service.EntryService
	progress  *service.ProgressService
	tribes    *service.TribeService
	users     *service.UserService
	uploadDir string
	uploadURL string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, uploadDir, uploadURL string) *API {
	progressService := service.NewProgressService(db)

	return &API{
		db:        db,
		habits:    service.NewHabitService(db),
		entries:   service.NewEntryService(db),
		progress:  progressService,
		tribes:    service.NewTribeService(db, progressService),
		users:     service.NewUserService(db),
		uploadDir: uploadDir,
		uploadURL: uploadURL,
	}
}

// Entries exposes the entry service for background jobs sharing the wiring.
func (a *API) Entries() *service.EntryService {
	return a.entries
}
