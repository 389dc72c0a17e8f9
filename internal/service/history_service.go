package service

import (
	"context"
	"fmt"
	"slices"

	"plategate/internal/domain/plate"
	"plategate/internal/repository"
)

// History holds every log, newest entry first.
type History struct {
	Registrations []plate.Registration
	Passes        []plate.ScanEvent
	Fails         []plate.ScanEvent
}

type HistoryService struct {
	repo repository.Repository
}

func NewHistoryService(repo repository.Repository) *HistoryService {
	return &HistoryService{repo: repo}
}

func (s *HistoryService) History(ctx context.Context) (*History, error) {
	regs, err := s.Registrations(ctx)
	if err != nil {
		return nil, err
	}
	passes, err := s.Events(ctx, plate.ResultPass)
	if err != nil {
		return nil, err
	}
	fails, err := s.Events(ctx, plate.ResultFail)
	if err != nil {
		return nil, err
	}
	return &History{
		Registrations: regs,
		Passes:        passes,
		Fails:         fails,
	}, nil
}

func (s *HistoryService) Registrations(ctx context.Context) ([]plate.Registration, error) {
	regs, err := s.repo.ListRegistrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	slices.Reverse(regs)
	return regs, nil
}

func (s *HistoryService) Events(ctx context.Context, result plate.Result) ([]plate.ScanEvent, error) {
	if !result.Valid() {
		return nil, fmt.Errorf("%w: result must be PASS or FAIL", ErrInvalidInput)
	}
	events, err := s.repo.ListScanEvents(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s events: %w", result, err)
	}
	slices.Reverse(events)
	return events, nil
}
