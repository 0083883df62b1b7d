package captable

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rpggio/capvault/internal/repository"
)

// EventObserver is implemented by sources that learn from contract events.
type EventObserver interface {
	Observe(ev Event)
}

// ContractSource reads a set of company and investment ids through the
// contract. It starts from the configured ids and adds those announced
// by events. Ids the contract does not know are skipped.
type ContractSource struct {
	reader Reader

	mu            sync.Mutex
	companyIDs    []uint64
	investmentIDs []uint64
}

// NewContractSource creates a source reading the given ids.
func NewContractSource(reader Reader, companyIDs, investmentIDs []uint64) *ContractSource {
	return &ContractSource{
		reader:        reader,
		companyIDs:    slices.Clone(companyIDs),
		investmentIDs: slices.Clone(investmentIDs),
	}
}

// Observe records ids announced by ev.
func (s *ContractSource) Observe(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Kind {
	case EventCompanyCreated:
		if !slices.Contains(s.companyIDs, ev.CompanyID) {
			s.companyIDs = append(s.companyIDs, ev.CompanyID)
		}
	case EventInvestmentMade:
		if !slices.Contains(s.investmentIDs, ev.InvestmentID) {
			s.investmentIDs = append(s.investmentIDs, ev.InvestmentID)
		}
	}
}

func (s *ContractSource) ids() ([]uint64, []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.companyIDs), slices.Clone(s.investmentIDs)
}

// FetchCompanies reads every known company.
func (s *ContractSource) FetchCompanies(ctx context.Context) ([]Company, error) {
	ids, _ := s.ids()
	companies := make([]Company, 0, len(ids))
	for _, id := range ids {
		company, err := s.reader.GetCompanyInfo(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading company %d: %w", id, err)
		}
		companies = append(companies, *company)
	}
	return companies, nil
}

// FetchInvestments reads every known investment.
func (s *ContractSource) FetchInvestments(ctx context.Context) ([]Investment, error) {
	_, ids := s.ids()
	investments := make([]Investment, 0, len(ids))
	for _, id := range ids {
		inv, err := s.reader.GetInvestmentInfo(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading investment %d: %w", id, err)
		}
		investments = append(investments, *inv)
	}
	return investments, nil
}
