package clicks

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
)

func setupClicksTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	links := `
CREATE TABLE IF NOT EXISTS partner_links (
  id TEXT PRIMARY KEY,
  partner_id TEXT NOT NULL,
  short_code TEXT NOT NULL UNIQUE,
  original_url TEXT NOT NULL,
  target_type TEXT NOT NULL,
  target_id TEXT,
  product_type TEXT NOT NULL DEFAULT 'general',
  status TEXT NOT NULL DEFAULT 'active',
  click_count INTEGER NOT NULL DEFAULT 0,
  attribution_days INTEGER NOT NULL DEFAULT 30,
  created_at DATETIME,
  updated_at DATETIME
);`
	clicks := `
CREATE TABLE IF NOT EXISTS partner_clicks (
  id TEXT PRIMARY KEY,
  link_id TEXT NOT NULL,
  partner_id TEXT NOT NULL,
  ip_address TEXT NOT NULL,
  user_agent TEXT NOT NULL,
  device_type TEXT NOT NULL DEFAULT 'unknown',
  referrer TEXT,
  session_id TEXT,
  converted INTEGER NOT NULL DEFAULT 0,
  converted_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(links).Error)
	require.NoError(t, db.Exec(clicks).Error)
	return db
}

func newLink(t *testing.T, db *gorm.DB) *models.PartnerLink {
	t.Helper()

	link := &models.PartnerLink{
		ID:          uuid.New(),
		PartnerID:   uuid.New(),
		ShortCode:   uuid.NewString()[:10],
		OriginalURL: "https://shop.example.com/p/42",
		TargetType:  enums.LinkTargetProduct,
		ProductType: enums.ProductTypeGeneral,
		Status:      enums.LinkStatusActive,
	}
	require.NoError(t, db.Create(link).Error)
	return link
}

func TestBumpLinkClickCount(t *testing.T) {
	db := setupClicksTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	link := newLink(t, db)
	require.NoError(t, repo.BumpLinkClickCount(ctx, link.ID))
	require.NoError(t, repo.BumpLinkClickCount(ctx, link.ID))

	got, err := repo.FindLinkByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ClickCount)
}

func TestFindLinkByShortCode(t *testing.T) {
	db := setupClicksTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	link := newLink(t, db)

	got, err := repo.FindLinkByShortCode(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)

	_, err = repo.FindLinkByShortCode(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCreateAndFindClick(t *testing.T) {
	db := setupClicksTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	link := newLink(t, db)
	click := &models.PartnerClick{
		ID:         uuid.New(),
		LinkID:     link.ID,
		PartnerID:  link.PartnerID,
		IPAddress:  "203.0.113.7",
		UserAgent:  "curl/8.0",
		DeviceType: enums.DeviceTypeUnknown,
	}
	_, err := repo.CreateClick(ctx, click)
	require.NoError(t, err)

	got, err := repo.FindClickByID(ctx, click.ID)
	require.NoError(t, err)
	assert.False(t, got.Converted)
	assert.Equal(t, link.ID, got.LinkID)
}
