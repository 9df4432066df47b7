package model

import "github.com/google/uuid"

// Activity is stored once and referenced by appointments and visit rows.
type Activity struct {
	Base
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Materials   []string    `json:"materials"`
	Members     []uuid.UUID `json:"members"`
	Goals       []string    `json:"goals"`
}

// ActivityDraft is the structured output expected from the generator.
type ActivityDraft struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Materials   []string `json:"materials"`
}

// GenerateActivityRequest drives both draft and full generation.
type GenerateActivityRequest struct {
	Name      string      `json:"name" binding:"max=200"`
	Members   []uuid.UUID `json:"members"`
	Goals     []string    `json:"goals"`
	Materials []string    `json:"materials" binding:"max=10"`
	Duration  int         `json:"duration" binding:"omitempty,min=1,max=240"`
	Idea      string      `json:"idea" binding:"max=2000"`
}

type UpdateActivityRequest struct {
	Name        *string   `json:"name" binding:"omitempty,min=1"`
	Description *string   `json:"description"`
	Materials   *[]string `json:"materials"`
	Goals       *[]string `json:"goals"`
}
