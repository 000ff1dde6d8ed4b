package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is one of the fixed complaint categories.
type Category string

const (
	CategoryRoad         Category = "road"
	CategoryWater        Category = "water"
	CategoryWaste        Category = "waste"
	CategoryElectricity  Category = "electricity"
	CategoryPublicSafety Category = "public_safety"
	CategoryEnvironment  Category = "environment"
	CategoryOther        Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryRoad,
	CategoryWater,
	CategoryWaste,
	CategoryElectricity,
	CategoryPublicSafety,
	CategoryEnvironment,
	CategoryOther,
}

// categoryTitleLabels are the labels used when deriving a complaint title.
var categoryTitleLabels = map[Category]string{
	CategoryRoad:         "ปัญหาถนน",
	CategoryWater:        "ปัญหาน้ำประปา",
	CategoryWaste:        "ปัญหาขยะ",
	CategoryElectricity:  "ปัญหาไฟฟ้า",
	CategoryPublicSafety: "ปัญหาความปลอดภัย",
	CategoryEnvironment:  "ปัญหาสิ่งแวดล้อม",
	CategoryOther:        "ปัญหาอื่นๆ",
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryTitleLabels[c]
	return ok
}

// Label returns the Thai label of the category, or the raw value when unknown.
func (c Category) Label() string {
	if label, ok := categoryTitleLabels[c]; ok {
		return label
	}
	return string(c)
}

// Status is the processing state of a complaint.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Complaint is one resident-submitted issue report.
type Complaint struct {
	// ID is the internal primary key (UUID).
	ID string `gorm:"primaryKey;type:uuid" json:"id"`
	// ComplaintID is the public tracking code (WS-YYYY-XXX). Assigned once at creation.
	ComplaintID string `gorm:"column:complaint_id;uniqueIndex;not null" json:"complaint_id"`
	// Title is derived from the category label and the description.
	Title       string   `gorm:"type:text;not null" json:"title"`
	Description string   `gorm:"type:text;not null" json:"description"`
	Category    Category `gorm:"type:text;not null;index" json:"category"`

	LocationText string   `gorm:"type:text" json:"location_text"`
	LocationLat  *float64 `json:"location_lat,omitempty"`
	LocationLng  *float64 `json:"location_lng,omitempty"`

	// Phone is only stored for anonymous submissions.
	Phone        *string `gorm:"type:text" json:"phone,omitempty"`
	PhotoURL     *string `gorm:"type:text" json:"photo_url,omitempty"`
	VoiceMemoURL *string `gorm:"type:text" json:"voice_memo_url,omitempty"`

	IsAnonymous bool `gorm:"not null;default:false" json:"is_anonymous"`
	// UserID is only set for identified submissions.
	UserID *string `gorm:"index" json:"user_id,omitempty"`

	Status        Status  `gorm:"type:text;not null;default:open;index" json:"status"`
	AdminResponse *string `gorm:"type:text" json:"admin_response,omitempty"`
	Priority      *int    `json:"priority,omitempty"`
	VoteCount     int     `gorm:"not null;default:0" json:"vote_count"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key and the default status.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = StatusOpen
	}
	return
}

// HasLocation reports whether the complaint carries map coordinates.
func (c *Complaint) HasLocation() bool {
	return c.LocationLat != nil && c.LocationLng != nil
}

// Public returns a copy without the reporter's contact details, for
// anyone who only knows the tracking code.
func (c *Complaint) Public() *Complaint {
	view := *c
	view.Phone = nil
	view.UserID = nil
	return &view
}
