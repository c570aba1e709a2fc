package dto

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Slug     string `json:"slug" binding:"required"`
	Timezone string `json:"timezone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type OwnerDTO struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Slug     string `json:"slug"`
	Timezone string `json:"timezone"`
}

type AuthResponse struct {
	Owner OwnerDTO `json:"owner"`
	Token string   `json:"token"`
}
