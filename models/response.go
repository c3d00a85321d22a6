package models

import "time"

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type UploadRequest struct {
	ExpirationHours *int   `form:"expiration_hours" validate:"omitempty,gte=0"`
	Password        string `form:"password" validate:"omitempty,max=128"`
	DownloadLimit   *int64 `form:"download_limit" validate:"omitempty,gte=1"`
}

type DownloadRequest struct {
	Password string `json:"password" form:"password"`
}

type SweepResult struct {
	Deactivated int64 `json:"deactivated"`
}
