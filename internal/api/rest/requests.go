package rest

import (
	"encoding/json"

	apierrors "github.com/Sogo28/chaincode-blockchain/internal/api/shared/errors"
)

// CreateTitleRequest represents the request body for registering a new title.
// Metadata is kept raw; the engine owns its decoding and validation.
type CreateTitleRequest struct {
	ID       string          `json:"id"`
	FilePath string          `json:"cheminFichier"`
	Metadata json.RawMessage `json:"metadata"`
}

// Validate validates the request body
func (r *CreateTitleRequest) Validate() error {
	if r.ID == "" {
		return apierrors.NewValidationError("id is required")
	}
	if len(r.Metadata) == 0 {
		return apierrors.NewValidationError("metadata is required")
	}
	return nil
}

// UpdateTitleRequest represents the request body for patching a title's metadata
type UpdateTitleRequest struct {
	Metadata json.RawMessage `json:"metadata"`
}

// Validate validates the request body
func (r *UpdateTitleRequest) Validate() error {
	if len(r.Metadata) == 0 {
		return apierrors.NewValidationError("metadata is required")
	}
	return nil
}

// TransferTitleRequest represents the request body for transferring ownership
type TransferTitleRequest struct {
	NewOwner string `json:"newOwner"`
	Price    int64  `json:"price"`
}

// Validate validates the request body
func (r *TransferTitleRequest) Validate() error {
	if r.NewOwner == "" {
		return apierrors.NewValidationError("newOwner is required")
	}
	if r.Price < 0 {
		return apierrors.NewValidationError("price must be a non-negative integer")
	}
	return nil
}
