package model

import "github.com/google/uuid"

type Group struct {
	Base
	Name         string      `json:"name"`
	AvatarURL    string      `json:"avatar_url,omitempty"`
	Patients     []uuid.UUID `json:"patients"`
	Goals        []string    `json:"goals"`
	Appointments []uuid.UUID `json:"appointments"`
}

type CreateGroupRequest struct {
	Name      string      `json:"name" binding:"required,max=200"`
	AvatarURL string      `json:"avatar_url" binding:"omitempty,url"`
	Goals     []string    `json:"goals"`
	Members   []uuid.UUID `json:"members" binding:"required,min=1"`
}

type UpdateGoalsRequest struct {
	Goals []string `json:"goals" binding:"required"`
}
