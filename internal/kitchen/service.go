package kitchen

import (
	"context"

	"foh-coordinator/internal/logger"
	"foh-coordinator/internal/models"
)

type Store interface {
	OpenOrders(ctx context.Context) ([]models.OrderWithLines, error)
}

// Service is the read/transition surface the kitchen display polls. Line
// transitions themselves go through the order service; this package only
// fetches snapshots and detects arrival edges between polls.
type Service struct {
	DB     Store
	Logger *logger.Logger
}

func NewService(db Store, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log}
}

// Snapshot returns every pending or cooking order with its lines, oldest
// first. Each poll gets the full current state; staleness up to one poll
// interval is an accepted property of the design.
func (s *Service) Snapshot(ctx context.Context) ([]models.OrderWithLines, error) {
	return s.DB.OpenOrders(ctx)
}
