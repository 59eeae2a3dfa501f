package dto

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email,max=140"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AccountResponse is the session-facing account view.
type AccountResponse struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email"`
	AccountNumber string `json:"account_number"`
	AvatarURL     string `json:"avatar_url"`
	Balance       int64  `json:"balance"`
	HasPin        bool   `json:"has_pin"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email"`
	AccountNumber string `json:"account_number"`
	AvatarURL     string `json:"avatar_url"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token   string          `json:"token"`
	Expiry  int64           `json:"expiry"` // Unix timestamp
	Account AccountResponse `json:"account"`
}

// UpdateProfileRequest carries the mutable profile fields; omitted fields
// stay unchanged.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty" binding:"omitempty,min=1,max=100"`
	AvatarURL   *string `json:"avatar_url,omitempty" binding:"omitempty,safe_url,max=500"`
}

// ChangePasswordRequest is the request body for password rotation.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

// ChangePinRequest is the request body for transfer PIN rotation. CurrentPin
// is empty on first-time set.
type ChangePinRequest struct {
	CurrentPin string `json:"current_pin"`
	NewPin     string `json:"new_pin" binding:"required,numeric,min=4,max=6"`
}

// TransferDetailsRequest is the entry-step body of a transfer flow.
// Amount is in centavos.
type TransferDetailsRequest struct {
	PayeeKey    string `json:"payee_key" binding:"required,max=140"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description" binding:"max=200"`
}

// TransferPinRequest is the PIN-step body of a transfer flow.
type TransferPinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// TransferFlowResponse is the caller-facing snapshot of a transfer flow.
type TransferFlowResponse struct {
	FlowID      string `json:"flow_id"`
	State       string `json:"state"`
	PayeeKey    string `json:"payee_key"`
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
	Fee         int64  `json:"fee,omitempty"`
	Total       int64  `json:"total,omitempty"`
}
