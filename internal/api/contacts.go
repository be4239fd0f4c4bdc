package api

import (
	"net/http"

	"evolution-gateway/internal/models"
	"evolution-gateway/internal/store"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	Contacts *store.ContactStore
}

func NewContactHandler(contacts *store.ContactStore) *ContactHandler {
	return &ContactHandler{Contacts: contacts}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	contacts, err := h.Contacts.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Return empty array instead of null
	if contacts == nil {
		contacts = []models.Contact{}
	}
	c.JSON(http.StatusOK, contacts)
}
