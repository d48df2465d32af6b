package transport

// AdRequest is the body of create and full-replace update calls.
type AdRequest struct {
	Title        string   `json:"title" validate:"required,min=1,max=200"`
	Description  string   `json:"description" validate:"max=5000"`
	Price        *int64   `json:"price" validate:"required,min=0"`
	Images       []string `json:"images" validate:"max=10,dive,required,max=512"`
	Category     string   `json:"category" validate:"required,adcategory"`
	ContactPhone string   `json:"contactPhone" validate:"omitempty,max=32"`
}

// SearchAdsRequest carries optional filters. Page and Size are validated by
// the query builder so that a negative page surfaces as an invalid page request.
type SearchAdsRequest struct {
	Category string `form:"category" validate:"max=100"`
	Title    string `form:"title" validate:"max=200"`
	MinPrice *int64 `form:"minPrice"`
	MaxPrice *int64 `form:"maxPrice"`
	Page     *int   `form:"page"`
	Size     *int   `form:"size"`
}

// PageRequest is the paging part of list calls.
type PageRequest struct {
	Page *int `form:"page"`
	Size *int `form:"size"`
}

type AdResponse struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Price        int64    `json:"price"`
	Images       []string `json:"images"`
	ImageURLs    []string `json:"imageUrls"`
	Category     string   `json:"category"`
	UserID       string   `json:"userId"`
	UserEmail    string   `json:"userEmail"`
	ContactPhone *string  `json:"contactPhone,omitempty"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

type AdSummary struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Price      int64  `json:"price"`
	Category   string `json:"category"`
	UserID     string `json:"userId"`
	PreviewURL string `json:"previewUrl,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

type AdPageResponse struct {
	Content       []AdSummary `json:"content"`
	Page          int         `json:"page"`
	Size          int         `json:"size"`
	TotalElements int64       `json:"totalElements"`
	TotalPages    int         `json:"totalPages"`
}

type UploadedImage struct {
	ObjectName string `json:"objectName"`
	PreviewURL string `json:"previewUrl"`
}

type UploadImagesResponse struct {
	Images []UploadedImage `json:"images"`
}
