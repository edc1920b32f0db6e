package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CNAMBondType is the device category covered by the national insurer.
type CNAMBondType string

const (
	BondOxygenConcentrator CNAMBondType = "CONCENTRATEUR_OXYGENE"
	BondVNI                CNAMBondType = "VNI"
	BondCPAP               CNAMBondType = "CPAP"
	BondMask               CNAMBondType = "MASQUE"
	BondOther              CNAMBondType = "AUTRE"
)

// CNAMStatus is the approval state of an insurance dossier.
type CNAMStatus string

const (
	CNAMPendingApproval CNAMStatus = "EN_ATTENTE_APPROBATION"
	CNAMApproved        CNAMStatus = "APPROUVE"
	CNAMInProgress      CNAMStatus = "EN_COURS"
	CNAMCompleted       CNAMStatus = "TERMINE"
	CNAMRefused         CNAMStatus = "REFUSE"
)

// Terminal reports whether no further transition is allowed from s.
func (s CNAMStatus) Terminal() bool {
	return s == CNAMCompleted || s == CNAMRefused
}

// CNAMDossier tracks an insurance claim opened by a sale.
// ComplementAmount is always DevicePrice - BondAmount.
type CNAMDossier struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DossierNumber    string          `gorm:"type:varchar(64);not null;index"`
	SaleID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	PatientID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentDetailID  *uuid.UUID      `gorm:"type:uuid"`
	BondType         CNAMBondType    `gorm:"type:varchar(32);not null"`
	BondAmount       decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	DevicePrice      decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	ComplementAmount decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	CurrentStep      int             `gorm:"not null;default:1"`
	TotalSteps       int             `gorm:"not null;default:1"`
	Status           CNAMStatus      `gorm:"type:varchar(32);not null"`
	Notes            *string
	CreatedByID      uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	StepHistory []CNAMStepHistory `gorm:"foreignKey:DossierID"`
}

// TableName keeps the insurer acronym readable (c_n_a_m_dossiers otherwise).
func (CNAMDossier) TableName() string { return "cnam_dossiers" }

// CNAMStepHistory is an append-only audit row of a dossier's step/status.
type CNAMStepHistory struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DossierID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Step        int        `gorm:"not null"`
	Status      CNAMStatus `gorm:"type:varchar(32);not null"`
	ChangedByID uuid.UUID  `gorm:"type:uuid;not null"`
	ChangedAt   time.Time  `gorm:"not null"`
	Notes       *string
}

func (CNAMStepHistory) TableName() string { return "cnam_step_histories" }
