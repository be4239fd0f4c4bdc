package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"evolution-gateway/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AutomationHandler struct {
	DB *gorm.DB
}

func NewAutomationHandler(db *gorm.DB) *AutomationHandler {
	return &AutomationHandler{DB: db}
}

// GetRules returns all automation rules in creation order (the order the
// matcher evaluates them in).
func (h *AutomationHandler) GetRules(c *gin.Context) {
	var rules []models.AutomationRule
	if err := h.DB.Order("id ASC").Find(&rules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rules)
}

type ruleRequest struct {
	Name            string   `json:"name" binding:"required"`
	Keywords        []string `json:"keywords" binding:"required"`
	ResponseMessage string   `json:"response_message" binding:"required"`
	Active          *bool    `json:"active"`
}

// CreateRule creates a new keyword rule.
func (h *AutomationHandler) CreateRule(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	keywords, err := json.Marshal(req.Keywords)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := models.AutomationRule{
		Name:            req.Name,
		Active:          true,
		TriggerType:     "keyword",
		TriggerKeywords: string(keywords),
		ResponseMessage: req.ResponseMessage,
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := h.DB.Create(&rule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": rule.ID, "message": "Rule created successfully"})
}

// UpdateRule updates an existing rule.
func (h *AutomationHandler) UpdateRule(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Name            string   `json:"name"`
		Keywords        []string `json:"keywords"`
		ResponseMessage string   `json:"response_message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updateData := map[string]interface{}{}
	if req.Name != "" {
		updateData["name"] = req.Name
	}
	if req.Keywords != nil {
		keywords, err := json.Marshal(req.Keywords)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updateData["trigger_keywords"] = string(keywords)
	}
	if req.ResponseMessage != "" {
		updateData["response_message"] = req.ResponseMessage
	}

	if err := h.DB.Model(&models.AutomationRule{}).Where("id = ?", id).Updates(updateData).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Rule updated successfully"})
}

// DeleteRule deletes a rule.
func (h *AutomationHandler) DeleteRule(c *gin.Context) {
	id := c.Param("id")

	if err := h.DB.Delete(&models.AutomationRule{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Rule deleted successfully"})
}

// ToggleRule enables or disables a rule.
func (h *AutomationHandler) ToggleRule(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.DB.Model(&models.AutomationRule{}).Where("id = ?", id).Update("active", req.Active).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Rule toggled successfully"})
}

// GetLogs returns recent automation execution logs.
func (h *AutomationHandler) GetLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var logs []models.AutomationLog
	if err := h.DB.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, logs)
}
