package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateCompanyRequest struct {
	Name               string  `json:"name" validate:"required,min=1,max=200"`
	SubscriptionStatus string  `json:"subscriptionStatus" validate:"omitempty,oneof=trial active expired"`
	MaxUsers           int     `json:"maxUsers" validate:"required,min=1,max=10000"`
	LogoURL            *string `json:"logoUrl" validate:"omitempty,url,max=500"`
	PrimaryColor       *string `json:"primaryColor" validate:"omitempty,hexcolor"`
}

type UpdateCompanyRequest struct {
	Name               *string `json:"name" validate:"omitempty,min=1,max=200"`
	SubscriptionStatus *string `json:"subscriptionStatus" validate:"omitempty,oneof=trial active expired"`
	MaxUsers           *int    `json:"maxUsers" validate:"omitempty,min=1,max=10000"`
	LogoURL            *string `json:"logoUrl" validate:"omitempty,url,max=500"`
	PrimaryColor       *string `json:"primaryColor" validate:"omitempty,hexcolor"`
}

type CompanyResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	SubscriptionStatus string    `json:"subscriptionStatus"`
	MaxUsers           int       `json:"maxUsers"`
	LogoURL            *string   `json:"logoUrl,omitempty"`
	PrimaryColor       *string   `json:"primaryColor,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

type CreateUserRequest struct {
	Name          string     `json:"name" validate:"required,min=1,max=200"`
	Email         string     `json:"email" validate:"required,email,max=254"`
	Phone         *string    `json:"phone" validate:"omitempty,max=50"`
	Role          string     `json:"role" validate:"required,userrole"`
	Password      string     `json:"password" validate:"required,strongpassword"`
	MonthlyTarget int        `json:"monthlyTarget" validate:"min=0"`
	WeeklyTarget  int        `json:"weeklyTarget" validate:"min=0"`
	CompanyID     *uuid.UUID `json:"companyId"`
}

type UpdateUserRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=200"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	Role          *string `json:"role" validate:"omitempty,userrole"`
	MonthlyTarget *int    `json:"monthlyTarget" validate:"omitempty,min=0"`
	WeeklyTarget  *int    `json:"weeklyTarget" validate:"omitempty,min=0"`
}

type UserResponse struct {
	ID            uuid.UUID  `json:"id"`
	CompanyID     *uuid.UUID `json:"companyId,omitempty"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         *string    `json:"phone,omitempty"`
	Role          string     `json:"role"`
	IsActive      bool       `json:"isActive"`
	MonthlyTarget int        `json:"monthlyTarget"`
	WeeklyTarget  int        `json:"weeklyTarget"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type UserListResponse struct {
	Items     []UserResponse `json:"items"`
	SeatsUsed int            `json:"seatsUsed"`
	MaxUsers  int            `json:"maxUsers"`
}
