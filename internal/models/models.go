package models

import "time"

type VideoType string

const (
	VideoTypeRegular VideoType = "regular"
	VideoTypeCartoon VideoType = "cartoon"
)

func (t VideoType) Valid() bool {
	return t == VideoTypeRegular || t == VideoTypeCartoon
}

type GenerationStatus string

const (
	GenerationSuccess GenerationStatus = "success"
	GenerationFailed  GenerationStatus = "failed"
)

func (s GenerationStatus) Valid() bool {
	return s == GenerationSuccess || s == GenerationFailed
}

// AllowanceType tells which path a generation allowance comes from.
type AllowanceType string

const (
	AllowanceCoupon AllowanceType = "coupon"
	AllowanceFree   AllowanceType = "free"
)

type User struct {
	ID                     string    `db:"id" json:"id"`
	Email                  string    `db:"email" json:"email"`
	PasswordHash           string    `db:"password_hash" json:"-"`
	CouponBalance          int       `db:"coupon_balance" json:"coupon_balance"`
	IsAdmin                bool      `db:"is_admin" json:"is_admin"`
	CartoonVideosGenerated int       `db:"cartoon_videos_generated" json:"cartoon_videos_generated"`
	CreatedAt              time.Time `db:"created_at" json:"createdAt"`
}

type Coupon struct {
	ID             string    `db:"id" json:"id"`
	Code           string    `db:"code" json:"code"`
	Value          int       `db:"value" json:"value"`
	Used           bool      `db:"used" json:"used"`
	UsedByUser     *string   `db:"used_by_user" json:"used_by_user"`
	CreatedByAdmin string    `db:"created_by_admin" json:"created_by_admin"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

type CouponUsage struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	CouponID  string    `db:"coupon_id" json:"couponId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type GenerationLog struct {
	ID           string           `db:"id" json:"id"`
	UserID       string           `db:"user_id" json:"userId"`
	VideoType    VideoType        `db:"video_type" json:"video_type"`
	Status       GenerationStatus `db:"status" json:"status"`
	Reason       *string          `db:"reason" json:"reason,omitempty"`
	Prompt       *string          `db:"prompt" json:"prompt,omitempty"`
	Orientation  *string          `db:"orientation" json:"orientation,omitempty"`
	StoryScript  *string          `db:"story_script" json:"story_script,omitempty"`
	Characters   *string          `db:"characters" json:"characters,omitempty"`
	ResponseData *string          `db:"response_data" json:"response_data,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"timestamp"`
}

// AdminGenerationLog is a generation log row joined with its owner's email.
type AdminGenerationLog struct {
	GenerationLog
	UserEmail string `db:"user_email" json:"user_email"`
}

type Stats struct {
	TotalVideos      int     `json:"totalVideos"`
	SuccessfulVideos int     `json:"successfulVideos"`
	FailedVideos     int     `json:"failedVideos"`
	SuccessRate      float64 `json:"successRate"`
	TotalUsers       int     `json:"totalUsers"`
	TotalCouponsUsed int     `json:"totalCouponsUsed"`
}
