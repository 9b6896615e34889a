package api

import "time"

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"required,max=1024"`
}

type registerRequest struct {
	TenantName string  `json:"tenant_name" validate:"required,max=200"`
	TenantCode string  `json:"tenant_code" validate:"required,max=10,alphanum"`
	Username   *string `json:"username" validate:"required_without=Email,omitempty,max=64"`
	Email      *string `json:"email" validate:"required_without=Username,omitempty,email,max=254"`
	Password   string  `json:"password" validate:"required,max=1024"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=512"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"max=512"`
}

type createUserRequest struct {
	Username *string `json:"username" validate:"required_without=Email,omitempty,max=64"`
	Email    *string `json:"email" validate:"required_without=Username,omitempty,email,max=254"`
	Role     string  `json:"role" validate:"omitempty,oneof=admin collaborator"`
	Password string  `json:"password" validate:"required,max=1024"`
}

type updateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,max=64"`
	Email    *string `json:"email" validate:"omitempty,max=254"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin collaborator"`
	Password *string `json:"password" validate:"omitempty,max=1024"`
}

type inviteCreateRequest struct {
	MaxUses    int   `json:"max_uses" validate:"gte=0"`
	TTLSeconds int64 `json:"ttl_seconds" validate:"gte=0"`
}

type inviteAcceptRequest struct {
	Code     string  `json:"code" validate:"required,max=512"`
	Username *string `json:"username" validate:"required_without=Email,omitempty,max=64"`
	Email    *string `json:"email" validate:"required_without=Username,omitempty,email,max=254"`
	Password string  `json:"password" validate:"required,max=1024"`
}

type userResponse struct {
	ID        string    `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Username  *string   `json:"username"`
	Email     *string   `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type tenantResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type sessionResponse struct {
	AccessToken      string          `json:"access_token"`
	AccessExpiresAt  time.Time       `json:"access_expires_at"`
	RefreshToken     string          `json:"refresh_token"`
	RefreshExpiresAt time.Time       `json:"refresh_expires_at"`
	ExpiresIn        int64           `json:"expires_in"`
	TokenType        string          `json:"token_type"`
	User             userResponse    `json:"user"`
	Tenant           *tenantResponse `json:"tenant,omitempty"`
}

type meResponse struct {
	User   userResponse   `json:"user"`
	Tenant tenantResponse `json:"tenant"`
}

type userListResponse struct {
	Users  []userResponse `json:"users"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type inviteCreateResponse struct {
	InviteID  string    `json:"invite_id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	MaxUses   int       `json:"max_uses"`
}

type okResponse struct {
	OK bool `json:"ok"`
}
