package service

import (
	"context"
	"fmt"
	"time"

	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/logger"
	"golang-crypto-trader/pkg/storage"
	"golang-crypto-trader/pkg/utils"
)

// PartialPromotionError reports a promotion that failed between its two
// copy steps. The copies are idempotent, so the operator re-runs the
// promotion after fixing the fault.
type PartialPromotionError struct {
	CompletedStep string
	Err           error
}

func (e *PartialPromotionError) Error() string {
	return fmt.Sprintf("promotion failed after %s: %v", e.CompletedStep, e.Err)
}

func (e *PartialPromotionError) Unwrap() error { return e.Err }

// ModelLifecycleService moves trained artifacts between deployment stages.
type ModelLifecycleService interface {
	Promote(ctx context.Context) error
}

type modelLifecycleService struct {
	log     *logger.Logger
	store   storage.Client
	nowFunc func() time.Time
}

// NewModelLifecycleService creates the lifecycle manager.
func NewModelLifecycleService(log *logger.Logger, store storage.Client) ModelLifecycleService {
	return &modelLifecycleService{log: log, store: store, nowFunc: time.Now}
}

// Promote archives the current production artifacts under a dated prefix,
// then copies staging over production. Archival runs strictly first so the
// serving stack is always recoverable.
func (s *modelLifecycleService) Promote(ctx context.Context) error {
	productionPrefix := fmt.Sprintf("%s/%s", common.StorageFolderModel, common.StageProduction)
	stagingPrefix := fmt.Sprintf("%s/%s", common.StorageFolderModel, common.StageStaging)
	archivePrefix := fmt.Sprintf("%s/%s/%s", common.StorageFolderModel, common.StageArchived, utils.FormatDate(s.nowFunc().UTC()))

	archived, err := s.store.CopyPrefix(ctx, productionPrefix, archivePrefix)
	if err != nil {
		return &PartialPromotionError{CompletedStep: "nothing", Err: err}
	}
	s.log.Info("Archived production artifacts",
		logger.IntField("objects", archived),
		logger.StringField("prefix", archivePrefix))

	promoted, err := s.store.CopyPrefix(ctx, stagingPrefix, productionPrefix)
	if err != nil {
		return &PartialPromotionError{CompletedStep: "archiving production", Err: err}
	}
	if promoted == 0 {
		return fmt.Errorf("no staging artifacts to promote under %s", stagingPrefix)
	}
	s.log.Info("Promoted staging artifacts to production", logger.IntField("objects", promoted))
	return nil
}
