package models

import "time"

type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// Collaborator is the HR-owned employee record. The engine only consumes
// birth date and gender; everything else is carried for the back office.
type Collaborator struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Document  string    `gorm:"size:20" json:"document"`
	Email     string    `gorm:"size:100" json:"email"`
	BirthDate time.Time `gorm:"not null" json:"birth_date"`
	Gender    Gender    `gorm:"size:10;not null" json:"gender"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`

	Dependents []Dependent `gorm:"foreignKey:CollaboratorID;constraint:OnDelete:CASCADE" json:"dependents,omitempty"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Dependent is a family member enrolled under a collaborator.
type Dependent struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CollaboratorID uint      `gorm:"index;not null" json:"collaborator_id"`
	Name           string    `gorm:"size:150;not null" json:"name"`
	Relationship   string    `gorm:"size:30" json:"relationship"` // spouse, child, ...
	BirthDate      time.Time `gorm:"not null" json:"birth_date"`
	Gender         Gender    `gorm:"size:10;not null" json:"gender"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
