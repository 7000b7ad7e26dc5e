package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sogo28/chaincode-blockchain/internal/engine"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// CreateTitle registers a new land title
	// POST /api/v1/titles
	CreateTitle(c *gin.Context)

	// GetTitle retrieves a single title by its content hash
	// GET /api/v1/titles/:id
	GetTitle(c *gin.Context)

	// ListTitles retrieves all titles, optionally filtered by owner
	// GET /api/v1/titles?owner=<owner>
	ListTitles(c *gin.Context)

	// UpdateTitle shallow-merges a metadata patch into a title
	// PATCH /api/v1/titles/:id
	UpdateTitle(c *gin.Context)

	// TransferTitle moves ownership of a title to a new owner
	// POST /api/v1/titles/:id/transfer
	TransferTitle(c *gin.Context)

	// DeleteTitle removes the live title record
	// DELETE /api/v1/titles/:id
	DeleteTitle(c *gin.Context)

	// VerifyTitle reports whether a live title exists for the hash
	// GET /api/v1/titles/:id/verify
	VerifyTitle(c *gin.Context)

	// GetTitleHistory retrieves every ledger revision of a title
	// GET /api/v1/titles/:id/history
	GetTitleHistory(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	engine engine.Engine
}

// NewHandler creates a new REST API handler over the title engine
func NewHandler(e engine.Engine) Handler {
	return &handler{engine: e}
}

// CreateTitle registers a new land title
func (h *handler) CreateTitle(c *gin.Context) {
	var req CreateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	record, err := h.engine.Create(c.Request.Context(), req.ID, req.FilePath, req.Metadata)
	if err != nil {
		respondEngineError(c, err, "Failed to create title")
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetTitle retrieves a single title by its content hash
func (h *handler) GetTitle(c *gin.Context) {
	id := c.Param("id")

	record, err := h.engine.Read(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, err, "Failed to get title")
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListTitles retrieves all titles, optionally filtered by owner
func (h *handler) ListTitles(c *gin.Context) {
	owner := c.Query("owner")

	var err error
	var records any
	if owner != "" {
		records, err = h.engine.ListByOwner(c.Request.Context(), owner)
	} else {
		records, err = h.engine.ListAll(c.Request.Context())
	}
	if err != nil {
		respondEngineError(c, err, "Failed to list titles")
		return
	}

	c.JSON(http.StatusOK, records)
}

// UpdateTitle shallow-merges a metadata patch into a title
func (h *handler) UpdateTitle(c *gin.Context) {
	id := c.Param("id")

	var req UpdateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	record, err := h.engine.Update(c.Request.Context(), id, req.Metadata)
	if err != nil {
		respondEngineError(c, err, "Failed to update title")
		return
	}

	c.JSON(http.StatusOK, record)
}

// TransferTitle moves ownership of a title to a new owner
func (h *handler) TransferTitle(c *gin.Context) {
	id := c.Param("id")

	var req TransferTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	record, err := h.engine.Transfer(c.Request.Context(), id, req.NewOwner, req.Price)
	if err != nil {
		respondEngineError(c, err, "Failed to transfer title")
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteTitle removes the live title record
func (h *handler) DeleteTitle(c *gin.Context) {
	id := c.Param("id")

	confirmation, err := h.engine.Delete(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, err, "Failed to delete title")
		return
	}

	c.JSON(http.StatusOK, confirmation)
}

// VerifyTitle reports whether a live title exists for the hash
func (h *handler) VerifyTitle(c *gin.Context) {
	id := c.Param("id")

	result, err := h.engine.VerifyAuthenticity(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, err, "Failed to verify title")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTitleHistory retrieves every ledger revision of a title
func (h *handler) GetTitleHistory(c *gin.Context) {
	id := c.Param("id")

	revisions, err := h.engine.History(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, err, "Failed to get title history")
		return
	}

	c.JSON(http.StatusOK, revisions)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "title-registry-api",
	})
}
