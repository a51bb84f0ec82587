package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

// TimeEntryInput is the writable part of a time entry. On update nil fields
// are left unchanged.
type TimeEntryInput struct {
	MatterID    *uint
	ClientID    *uint
	Description *string
	Hours       *decimal.Decimal
	Date        *time.Time
	Billable    *bool
}

// CreateTimeEntry records work for userID. When only a matter is given the
// client is taken from the matter.
func (s *Service) CreateTimeEntry(ctx context.Context, tenantID, userID uint, in TimeEntryInput) (*models.TimeEntry, error) {
	if in.Description == nil || *in.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if in.Hours == nil {
		return nil, fmt.Errorf("%w: hours is required", ErrInvalidInput)
	}

	e := models.TimeEntry{
		TenantID: tenantID,
		UserID:   userID,
		Date:     s.now(),
		Billable: true,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyTimeEntry(tx, tenantID, &e, in); err != nil {
			return err
		}
		if err := tx.Create(&e).Error; err != nil {
			return fmt.Errorf("create time entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateTimeEntry edits an unbilled entry.
func (s *Service) UpdateTimeEntry(ctx context.Context, tenantID, id uint, in TimeEntryInput) (*models.TimeEntry, error) {
	var e models.TimeEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadEntry(tx, tenantID, id, &e); err != nil {
			return err
		}
		if e.Billed() {
			return ErrEntryBilled
		}
		if err := applyTimeEntry(tx, tenantID, &e, in); err != nil {
			return err
		}
		if err := tx.Save(&e).Error; err != nil {
			return fmt.Errorf("update time entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteTimeEntry removes an unbilled entry.
func (s *Service) DeleteTimeEntry(ctx context.Context, tenantID, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e models.TimeEntry
		if err := loadEntry(tx, tenantID, id, &e); err != nil {
			return err
		}
		if e.Billed() {
			return ErrEntryBilled
		}
		if err := tx.Delete(&e).Error; err != nil {
			return fmt.Errorf("delete time entry: %w", err)
		}
		return nil
	})
}

func loadEntry(tx *gorm.DB, tenantID, id uint, e *models.TimeEntry) error {
	err := tx.Where("id = ? AND tenant_id = ?", id, tenantID).First(e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTimeEntryNotFound
	}
	if err != nil {
		return fmt.Errorf("load time entry: %w", err)
	}
	return nil
}

func applyTimeEntry(tx *gorm.DB, tenantID uint, e *models.TimeEntry, in TimeEntryInput) error {
	if in.Description != nil {
		if *in.Description == "" {
			return fmt.Errorf("%w: description is required", ErrInvalidInput)
		}
		e.Description = *in.Description
	}
	if in.Hours != nil {
		if err := util.ValidateHours(*in.Hours); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		e.Hours = in.Hours.Round(2)
	}
	if in.Date != nil {
		e.Date = *in.Date
	}
	if in.Billable != nil {
		e.Billable = *in.Billable
	}

	if in.ClientID != nil {
		var n int64
		if err := tx.Model(&models.Client{}).Where("id = ? AND tenant_id = ?", *in.ClientID, tenantID).Count(&n).Error; err != nil {
			return fmt.Errorf("check client: %w", err)
		}
		if n == 0 {
			return ErrClientNotFound
		}
		e.ClientID = in.ClientID
	}
	matterID := in.MatterID
	if matterID == nil && in.ClientID != nil {
		// a client change must still agree with the matter already on the entry
		matterID = e.MatterID
	}
	if matterID != nil {
		var m models.Matter
		err := tx.Where("id = ? AND tenant_id = ?", *matterID, tenantID).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: matter not found", ErrInvalidInput)
		}
		if err != nil {
			return fmt.Errorf("check matter: %w", err)
		}
		if e.ClientID != nil && *e.ClientID != m.ClientID {
			return fmt.Errorf("%w: matter belongs to another client", ErrInvalidInput)
		}
		e.MatterID = matterID
		if e.ClientID == nil {
			cid := m.ClientID
			e.ClientID = &cid
		}
	}
	return nil
}
