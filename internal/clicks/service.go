package clicks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/internal/partners"
	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
	pkgerrors "github.com/partnerledger/backend/pkg/errors"
	"github.com/partnerledger/backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes link registration and click recording.
type Service interface {
	RegisterLink(ctx context.Context, input RegisterLinkInput) (*models.PartnerLink, error)
	Record(ctx context.Context, input RecordClickInput) (*RecordClickResult, error)
}

type service struct {
	repo     Repository
	partners partners.Repository
	tx       txRunner
	metrics  *metrics.PipelineMetrics
	now      func() time.Time
}

// RegisterLinkInput carries the fields needed to mint a trackable link.
type RegisterLinkInput struct {
	PartnerID       uuid.UUID
	OriginalURL     string
	TargetType      enums.LinkTargetType
	TargetID        *uuid.UUID
	ProductType     enums.ProductType
	AttributionDays int
}

// RecordClickInput identifies the link and the request context of a click.
type RecordClickInput struct {
	LinkID    uuid.UUID
	ShortCode string
	IPAddress string
	UserAgent string
	Referrer  *string
	SessionID *string
}

// RecordClickResult reports whether the click counted. Invalid clicks
// (inactive link or partner) are dropped without an error so tracking
// endpoints stay cheap to call.
type RecordClickResult struct {
	Valid  bool
	Reason string
	Click  *models.PartnerClick
}

const (
	reasonLinkInactive    = "link_inactive"
	reasonPartnerInactive = "partner_inactive"
	reasonRecorded        = "recorded"
)

// NewService builds a click service backed by the provided repositories.
func NewService(repo Repository, partnerRepo partners.Repository, tx txRunner, pipelineMetrics *metrics.PipelineMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("clicks repository required")
	}
	if partnerRepo == nil {
		return nil, fmt.Errorf("partners repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		partners: partnerRepo,
		tx:       tx,
		metrics:  pipelineMetrics,
		now:      time.Now,
	}, nil
}

func (s *service) RegisterLink(ctx context.Context, input RegisterLinkInput) (*models.PartnerLink, error) {
	if input.PartnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner id required")
	}
	if _, err := url.ParseRequestURI(input.OriginalURL); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "original url must be a valid url")
	}
	if !input.TargetType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target type must be product, category, or page")
	}
	productType := input.ProductType
	if productType == "" {
		productType = enums.ProductTypeGeneral
	}
	if !productType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product type")
	}
	if input.AttributionDays < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attribution days must not be negative")
	}

	partner, err := s.partners.FindByID(ctx, input.PartnerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
	}
	if partner.Status != enums.PartnerStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "partner is not active")
	}

	link := &models.PartnerLink{
		PartnerID:       input.PartnerID,
		ShortCode:       newShortCode(),
		OriginalURL:     input.OriginalURL,
		TargetType:      input.TargetType,
		TargetID:        input.TargetID,
		ProductType:     productType,
		Status:          enums.LinkStatusActive,
		AttributionDays: input.AttributionDays,
	}
	created, err := s.repo.CreateLink(ctx, link)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create link")
	}
	return created, nil
}

func (s *service) Record(ctx context.Context, input RecordClickInput) (*RecordClickResult, error) {
	if input.LinkID == uuid.Nil && input.ShortCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "link id or short code required")
	}
	if input.IPAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ip address required")
	}

	link, err := s.loadLink(ctx, input)
	if err != nil {
		return nil, err
	}
	if link.Status != enums.LinkStatusActive {
		s.metrics.IncClick(reasonLinkInactive)
		return &RecordClickResult{Valid: false, Reason: reasonLinkInactive}, nil
	}

	partner, err := s.partners.FindByID(ctx, link.PartnerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
	}
	if partner.Status != enums.PartnerStatusActive {
		s.metrics.IncClick(reasonPartnerInactive)
		return &RecordClickResult{Valid: false, Reason: reasonPartnerInactive}, nil
	}

	click := &models.PartnerClick{
		LinkID:     link.ID,
		PartnerID:  link.PartnerID,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		DeviceType: enums.DeviceTypeFromUserAgent(input.UserAgent),
		Referrer:   input.Referrer,
		SessionID:  input.SessionID,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateClick(ctx, click); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create click")
		}
		if err := repo.BumpLinkClickCount(ctx, link.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump link click count")
		}
		if err := s.partners.WithTx(tx).RecordClick(ctx, link.PartnerID, s.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump partner click count")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncClick(reasonRecorded)
	return &RecordClickResult{Valid: true, Reason: reasonRecorded, Click: click}, nil
}

func (s *service) loadLink(ctx context.Context, input RecordClickInput) (*models.PartnerLink, error) {
	var (
		link *models.PartnerLink
		err  error
	)
	if input.LinkID != uuid.Nil {
		link, err = s.repo.FindLinkByID(ctx, input.LinkID)
	} else {
		link, err = s.repo.FindLinkByShortCode(ctx, input.ShortCode)
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "link not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load link")
	}
	return link, nil
}

func newShortCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}
