package catalog

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"beersync/internal/commercial"
	"beersync/internal/config"
	"beersync/internal/regulatory"
	"beersync/internal/storage"
)

// SyncService replaces the stored catalog snapshots from the external
// services. Snapshots are whole-set swaps; the matcher and the allocator
// must be rerun on fresh snapshots after a sync.
type SyncService struct {
	db         *storage.DB
	commercial *commercial.Client
	regulatory *regulatory.Client
	log        *logrus.Logger
}

func NewSyncService(db *storage.DB, cfg config.Config, log *logrus.Logger) (*SyncService, error) {
	regClient, err := regulatory.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &SyncService{
		db:         db,
		commercial: commercial.NewClient(cfg),
		regulatory: regClient,
		log:        log,
	}, nil
}

func (s *SyncService) SyncCommercial(ctx context.Context) (int, error) {
	products, err := s.commercial.Assortment(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.ReplaceCommercialProducts(products); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("catalog.last_commercial_sync", time.Now().UTC().Format(time.RFC3339))

	s.log.WithFields(logrus.Fields{"products": len(products)}).Info("commercial catalog synced")
	return len(products), nil
}

func (s *SyncService) SyncRegulatory(ctx context.Context) (int, error) {
	if err := s.regulatory.Login(ctx); err != nil {
		return 0, err
	}
	goods, err := s.regulatory.Rests(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.ReplaceRegulatoryProducts(goods); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("catalog.last_regulatory_sync", time.Now().UTC().Format(time.RFC3339))

	s.log.WithFields(logrus.Fields{"goods": len(goods)}).Info("regulatory catalog synced")
	return len(goods), nil
}
