package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"beersync/internal"
	"beersync/internal/catalog"
	"beersync/internal/commercial"
	"beersync/internal/regulatory"
	"beersync/internal/storage"
)

// JournalService turns one day of retail sales into regulatory stock
// depletions. An allocation run is not idempotent against the registers;
// entries and decrements are persisted as one transaction so a retry never
// double-depletes.
type JournalService struct {
	db         *storage.DB
	commercial *commercial.Client
	regulatory *regulatory.Client
	log        *logrus.Logger
}

func NewJournalService(db *storage.DB, pos *commercial.Client, reg *regulatory.Client, log *logrus.Logger) *JournalService {
	return &JournalService{db: db, commercial: pos, regulatory: reg, log: log}
}

// Create pulls demand and returns for the date, allocates the net sales
// against the stock registers and persists the result atomically. The
// returned entries are what the remote journal will receive.
func (s *JournalService) Create(ctx context.Context, date string) ([]internal.JournalEntry, error) {
	demands, err := s.commercial.RetailDemand(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch demand: %w", err)
	}
	returns, err := s.commercial.RetailReturns(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch returns: %w", err)
	}

	sales := NetSales(demands, returns)
	if err := s.db.ReplaceSales(date, sales); err != nil {
		return nil, err
	}

	entries, err := s.allocateStored(date, sales)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"date":    date,
		"sales":   len(sales),
		"entries": len(entries),
	}).Info("sales journal created")

	return entries, nil
}

// Recreate reruns the allocation from the sales already stored for the
// date, without touching the POS.
func (s *JournalService) Recreate(date string) ([]internal.JournalEntry, error) {
	sales, err := s.db.ListSales(date)
	if err != nil {
		return nil, err
	}
	return s.allocateStored(date, sales)
}

func (s *JournalService) allocateStored(date string, sales []internal.SaleRecord) ([]internal.JournalEntry, error) {
	// An earlier run for this date already depleted the registers; put its
	// consumption back before allocating again.
	if err := s.db.RevertAllocation(date); err != nil {
		return nil, err
	}

	commercialProducts, err := s.db.ListCommercialProducts()
	if err != nil {
		return nil, err
	}
	regulatoryProducts, err := s.db.ListRegulatoryProducts()
	if err != nil {
		return nil, err
	}
	links, err := s.db.ListLinks()
	if err != nil {
		return nil, err
	}

	idx := catalog.BuildIndex(commercialProducts, regulatoryProducts, links)
	entries, stocks := NewAllocator(idx).Allocate(sales)

	if err := s.db.ApplyAllocation(date, entries, stocks); err != nil {
		return nil, err
	}
	return entries, nil
}

// Push submits the stored journal for the date to the regulatory service.
// The remote day must still be empty; a populated day means the journal
// was already filed and replaying would double-report.
func (s *JournalService) Push(ctx context.Context, date string) error {
	entries, err := s.db.ListJournal(date)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no journal entries stored for %s", date)
	}

	if err := s.regulatory.Login(ctx); err != nil {
		return err
	}
	empty, err := s.regulatory.JournalIsEmpty(ctx, date)
	if err != nil {
		return err
	}
	if !empty {
		return regulatory.ErrJournalNotEmpty
	}
	if err := s.regulatory.WriteJournal(ctx, date, entries); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"date": date, "entries": len(entries)}).Info("sales journal pushed")
	return nil
}
