package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type webLoadRequest struct {
	URLList   string `json:"url_list"`
	OpenAIKey string `json:"openai_key"`
	ZillizURI string `json:"zilliz_uri"`
	User      string `json:"user"`
	Password  string `json:"password"`
}

type generateAnswerRequest struct {
	Question string `json:"question"`
}

type handlers struct {
	surface Surface
}

func (h *handlers) webLoad(c *gin.Context) {
	var req webLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := h.surface.WebLoad(c.Request.Context(), req.URLList, req.OpenAIKey, req.ZillizURI, req.User, req.Password)
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *handlers) generateAnswer(c *gin.Context) {
	var req generateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": h.surface.GenerateAnswer(c.Request.Context(), req.Question)})
}

func (h *handlers) status(c *gin.Context) {
	info, ok := h.surface.Status()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"loaded": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loaded": true, "index": info})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
