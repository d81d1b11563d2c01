package repository

import (
	"context"

	"gorm.io/gorm"

	"pisqre/backend/internal/model"
)

// BookingFilters 预约过滤条件
type BookingFilters struct {
	TutorID   string
	StudentID string
}

// BookingRepository 预约数据访问接口
type BookingRepository interface {
	// Create 同一时段重复预约时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	List(ctx context.Context, filters *BookingFilters, offset, limit int) ([]model.Booking, int64, error)
	UpdateDetails(ctx context.Context, booking *model.Booking) error
	Delete(ctx context.Context, id string) error
}

type bookingRepo struct {
	db *gorm.DB
}

// NewBookingRepo 创建 BookingRepository 实例
func NewBookingRepo(db *gorm.DB) BookingRepository {
	return &bookingRepo{db: db}
}

func (r *bookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Preload("Schedule").
		Preload("Tutor").
		Preload("Student").
		Where("booking_id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepo) List(ctx context.Context, filters *BookingFilters, offset, limit int) ([]model.Booking, int64, error) {
	var bookings []model.Booking
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Booking{})
	if filters != nil {
		if filters.TutorID != "" {
			db = db.Where("tutor_id = ?", filters.TutorID)
		}
		if filters.StudentID != "" {
			db = db.Where("student_id = ?", filters.StudentID)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Schedule").Preload("Tutor").Preload("Student").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, total, err
}

func (r *bookingRepo) UpdateDetails(ctx context.Context, booking *model.Booking) error {
	result := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("booking_id = ?", booking.BookingID).
		Updates(map[string]interface{}{
			"course_name":  booking.CourseName,
			"description":  booking.Description,
			"session_type": booking.SessionType,
			"updated_at":   gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *bookingRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("booking_id = ?", id).
		Delete(&model.Booking{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
