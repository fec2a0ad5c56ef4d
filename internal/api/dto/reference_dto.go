package dto

// CategoryResponse response.
type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name" validate:"required,max=50"`
}

// PriorityResponse response.
type PriorityResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name" validate:"required,max=50"`
	Level     int    `json:"level" validate:"min=0"`
	ColorCode string `json:"color_code" validate:"omitempty,hexcolor"`
}

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// CreatePriorityRequest payload.
type CreatePriorityRequest struct {
	Name      string `json:"name" validate:"required,max=50"`
	Level     int    `json:"level" validate:"min=0"`
	ColorCode string `json:"color_code" validate:"omitempty,hexcolor"`
}
