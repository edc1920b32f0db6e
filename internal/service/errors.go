package service

import (
	"errors"
	"fmt"

	"medpos/internal/apierror"
	"medpos/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the services react to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

var (
	// ErrInvoiceNumberExhausted means every suffix for the current second was taken.
	ErrInvoiceNumberExhausted = errors.New("invoice number candidates exhausted")
	// ErrDossierRequiresPatient is returned for an insurance dossier on a company sale.
	ErrDossierRequiresPatient = errors.New("insurance dossier requires a patient client")
	ErrInvalidTransition      = errors.New("invalid dossier status transition")
)

var categoryMessages = map[apierror.Category]string{
	apierror.CategoryValidation:          "Données de vente invalides",
	apierror.CategoryIdentifierExhausted: "Impossible d'attribuer un numéro de facture, veuillez réessayer",
	apierror.CategoryDuplicate:           "Données en double détectées",
	apierror.CategoryInvalidReference:    "Référence invalide (client, produit ou appareil inexistant)",
	apierror.CategoryMissingFields:       "Champs obligatoires manquants",
	apierror.CategoryNotFound:            "Ressource introuvable",
	apierror.CategoryInvalidTransition:   "Transition de statut non autorisée",
	apierror.CategoryInternal:            "Erreur lors de la création de la vente, veuillez réessayer",
}

// ServiceError is the single failure shape returned by the sale and dossier services.
// Message is safe to show to clients; Err keeps the cause for logs.
type ServiceError struct {
	Category apierror.Category
	Message  string
	Fields   map[string]string
	Err      error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func newServiceError(cat apierror.Category, err error) *ServiceError {
	return &ServiceError{Category: cat, Message: categoryMessages[cat], Err: err}
}

func newValidationError(fields map[string]string) *ServiceError {
	return &ServiceError{
		Category: apierror.CategoryValidation,
		Message:  categoryMessages[apierror.CategoryValidation],
		Fields:   fields,
	}
}

// classify maps any error escaping a unit of work onto a category.
func classify(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, ErrInvoiceNumberExhausted):
		return newServiceError(apierror.CategoryIdentifierExhausted, err)
	case errors.Is(err, ErrDossierRequiresPatient):
		return newServiceError(apierror.CategoryValidation, err)
	case errors.Is(err, ErrInvalidTransition):
		return newServiceError(apierror.CategoryInvalidTransition, err)
	case errors.Is(err, repository.ErrNotFound):
		return newServiceError(apierror.CategoryInvalidReference, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return newServiceError(apierror.CategoryDuplicate, err)
		case pgForeignKeyViolation:
			return newServiceError(apierror.CategoryInvalidReference, err)
		case pgNotNullViolation:
			return newServiceError(apierror.CategoryMissingFields, err)
		case pgCheckViolation:
			return newServiceError(apierror.CategoryValidation, err)
		}
	}
	return newServiceError(apierror.CategoryInternal, err)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
