package conversions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/internal/clicks"
	"github.com/partnerledger/backend/internal/partners"
	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
	pkgerrors "github.com/partnerledger/backend/pkg/errors"
	"github.com/partnerledger/backend/pkg/metrics"
	"github.com/partnerledger/backend/pkg/outbox"
	"github.com/partnerledger/backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes conversion creation and its confirm/cancel lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PartnerConversion, error)
	Confirm(ctx context.Context, id uuid.UUID) (*models.PartnerConversion, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.PartnerConversion, error)
}

type service struct {
	repo              Repository
	clicksRepo        clicks.Repository
	partnersRepo      partners.Repository
	tx                txRunner
	outbox            outboxPublisher
	metrics           *metrics.PipelineMetrics
	defaultWindowDays int
	now               func() time.Time
}

// CreateInput attributes an order to a previously recorded click.
type CreateInput struct {
	ClickID     uuid.UUID
	OrderID     uuid.UUID
	OrderAmount int64
	ProductType enums.ProductType
}

// NewService builds a conversion service backed by the provided repositories.
func NewService(repo Repository, clicksRepo clicks.Repository, partnersRepo partners.Repository, tx txRunner, publisher outboxPublisher, pipelineMetrics *metrics.PipelineMetrics, defaultWindowDays int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("conversions repository required")
	}
	if clicksRepo == nil {
		return nil, fmt.Errorf("clicks repository required")
	}
	if partnersRepo == nil {
		return nil, fmt.Errorf("partners repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if defaultWindowDays <= 0 {
		return nil, fmt.Errorf("default attribution window must be positive")
	}
	return &service{
		repo:              repo,
		clicksRepo:        clicksRepo,
		partnersRepo:      partnersRepo,
		tx:                tx,
		outbox:            publisher,
		metrics:           pipelineMetrics,
		defaultWindowDays: defaultWindowDays,
		now:               time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PartnerConversion, error) {
	if input.ClickID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "click id required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.OrderAmount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}

	var conversion *models.PartnerConversion
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		clicksRepo := s.clicksRepo.WithTx(tx)
		click, err := clicksRepo.FindClickByID(ctx, input.ClickID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "click not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load click")
		}
		if click.Converted {
			return pkgerrors.New(pkgerrors.CodeAlreadyConverted, "click already converted")
		}

		link, err := clicksRepo.FindLinkByID(ctx, click.LinkID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "link not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load link")
		}

		productType := input.ProductType
		if productType == "" {
			productType = link.ProductType
		}
		if !productType.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown product type")
		}
		if !productType.IsCommissionable() {
			return pkgerrors.New(pkgerrors.CodeValidation, "product type is not commissionable")
		}

		windowDays := link.AttributionDays
		if windowDays <= 0 {
			windowDays = s.defaultWindowDays
		}
		now := s.now().UTC()
		if now.After(click.CreatedAt.AddDate(0, 0, windowDays)) {
			return pkgerrors.New(pkgerrors.CodeAttributionExpired, "attribution window expired")
		}

		repo := s.repo.WithTx(tx)
		claimed, err := repo.ClaimClick(ctx, click.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim click")
		}
		if claimed == 0 {
			return pkgerrors.New(pkgerrors.CodeAlreadyConverted, "click already converted")
		}

		conversion = &models.PartnerConversion{
			PartnerID:       click.PartnerID,
			ClickID:         click.ID,
			OrderID:         input.OrderID,
			OrderAmount:     input.OrderAmount,
			ProductType:     productType,
			Status:          enums.ConversionStatusPending,
			AttributionDays: windowDays,
		}
		if _, err := repo.Create(ctx, conversion); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create conversion")
		}
		if err := s.partnersRepo.WithTx(tx).RecordConversion(ctx, click.PartnerID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump partner conversion count")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventConversionCreated,
			AggregateType: enums.AggregateConversion,
			AggregateID:   conversion.ID,
			Version:       1,
			Data: payloads.ConversionCreatedEvent{
				ConversionID: conversion.ID,
				PartnerID:    conversion.PartnerID,
				ClickID:      conversion.ClickID,
				OrderID:      conversion.OrderID,
				OrderAmount:  conversion.OrderAmount,
				Status:       conversion.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncConversion(string(enums.ConversionStatusPending))
	return conversion, nil
}

func (s *service) Confirm(ctx context.Context, id uuid.UUID) (*models.PartnerConversion, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversion id required")
	}

	var conversion *models.PartnerConversion
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "conversion not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversion")
		}
		if loaded.Status != enums.ConversionStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending conversions can be confirmed")
		}

		now := s.now().UTC()
		rows, err := repo.MarkConfirmed(ctx, id, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm conversion")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "conversion already transitioned")
		}

		loaded.Status = enums.ConversionStatusConfirmed
		loaded.ConfirmedAt = &now
		conversion = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventConversionConfirmed,
			AggregateType: enums.AggregateConversion,
			AggregateID:   loaded.ID,
			Version:       1,
			Data: payloads.ConversionStatusChangedEvent{
				ConversionID: loaded.ID,
				PartnerID:    loaded.PartnerID,
				OrderID:      loaded.OrderID,
				OldStatus:    enums.ConversionStatusPending,
				NewStatus:    enums.ConversionStatusConfirmed,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncConversion(string(enums.ConversionStatusConfirmed))
	return conversion, nil
}

// Cancel voids a pending or confirmed conversion. The click it claimed
// stays flagged so the same click cannot be attributed again.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.PartnerConversion, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversion id required")
	}

	var conversion *models.PartnerConversion
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "conversion not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversion")
		}
		if loaded.Status == enums.ConversionStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "conversion already cancelled")
		}

		oldStatus := loaded.Status
		now := s.now().UTC()
		rows, err := repo.MarkCancelled(ctx, id, now, reason)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel conversion")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "conversion already transitioned")
		}

		loaded.Status = enums.ConversionStatusCancelled
		loaded.CancelledAt = &now
		loaded.CancelReason = &reason
		conversion = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventConversionCancelled,
			AggregateType: enums.AggregateConversion,
			AggregateID:   loaded.ID,
			Version:       1,
			Data: payloads.ConversionStatusChangedEvent{
				ConversionID: loaded.ID,
				PartnerID:    loaded.PartnerID,
				OrderID:      loaded.OrderID,
				OldStatus:    oldStatus,
				NewStatus:    enums.ConversionStatusCancelled,
				Reason:       reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncConversion(string(enums.ConversionStatusCancelled))
	return conversion, nil
}
