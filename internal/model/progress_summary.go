package model

type ModuleStatus string

const (
	ModuleStatusLocked    ModuleStatus = "locked"
	ModuleStatusAvailable ModuleStatus = "available"
	ModuleStatusCompleted ModuleStatus = "completed"
)

type ModuleProgressDetail struct {
	ModuleID       uint         `json:"moduleId"`
	Title          string       `json:"title"`
	TotalItems     int          `json:"totalItems"`
	CompletedItems int          `json:"completedItems"`
	Percentage     int          `json:"percentage"`
	Status         ModuleStatus `json:"status"`
}

type CourseProgressSummary struct {
	CourseID    uint                   `json:"courseId"`
	Percentage  int                    `json:"percentage"`
	IsCompleted bool                   `json:"isCompleted"`
	Modules     []ModuleProgressDetail `json:"modules"`
}
