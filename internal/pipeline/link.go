package pipeline

import (
	"github.com/sirupsen/logrus"

	"beersync/internal"
	"beersync/internal/catalog"
	"beersync/internal/storage"
)

// LinkService runs one matching pass: correspondence rows against the
// stored snapshots, new links persisted, refused rows returned for review.
type LinkService struct {
	db  *storage.DB
	log *logrus.Logger
}

func NewLinkService(db *storage.DB, log *logrus.Logger) *LinkService {
	return &LinkService{db: db, log: log}
}

type LinkResult struct {
	Added      int
	Rejections []internal.Rejection
}

func (s *LinkService) Run(rows []internal.CorrespondenceRow) (LinkResult, error) {
	commercial, err := s.db.ListCommercialProducts()
	if err != nil {
		return LinkResult{}, err
	}
	regulatory, err := s.db.ListRegulatoryProducts()
	if err != nil {
		return LinkResult{}, err
	}
	links, err := s.db.ListLinks()
	if err != nil {
		return LinkResult{}, err
	}

	idx := catalog.BuildIndex(commercial, regulatory, links)
	created, rejections := NewMatcher(idx).Match(rows)

	added, err := s.db.InsertLinks(created)
	if err != nil {
		return LinkResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"rows":     len(rows),
		"added":    added,
		"rejected": len(rejections),
	}).Info("matching pass finished")

	return LinkResult{Added: added, Rejections: rejections}, nil
}
