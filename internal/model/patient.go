package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Patient struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FirstName              string     `gorm:"not null"`
	LastName               string     `gorm:"not null"`
	Phone                  *string
	Email                  *string
	CNAMID                 *string    `gorm:"column:cnam_id"`
	ResponsibleClinicianID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt              time.Time
	UpdatedAt              time.Time

	ResponsibleClinician *User `gorm:"foreignKey:ResponsibleClinicianID"`
}

type Company struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyName string    `gorm:"not null"`
	TaxID       *string
	Email       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PatientHistoryAction: only "SALE" is written by the sale engine.
type PatientHistoryAction string

const PatientHistorySale PatientHistoryAction = "SALE"

// PatientHistory is the append-only clinical/commercial timeline of a patient.
type PatientHistory struct {
	ID            uuid.UUID            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PatientID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	ActionType    PatientHistoryAction `gorm:"type:varchar(32);not null"`
	PerformedByID uuid.UUID            `gorm:"type:uuid;not null"`
	RelatedItemID *uuid.UUID           `gorm:"type:uuid"`
	RelatedType   *string              `gorm:"type:varchar(32)"`
	Details       datatypes.JSON       `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time
}
