package handlers

import (
	"net/http"

	"dialog-agent/dialog"
	"dialog-agent/web/format"
	"dialog-agent/web/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DialogHandler struct {
	engine   *dialog.Engine
	renderer *format.Renderer
	logger   *zap.Logger
}

func NewDialogHandler(engine *dialog.Engine, renderer *format.Renderer, logger *zap.Logger) *DialogHandler {
	return &DialogHandler{
		engine:   engine,
		renderer: renderer,
		logger:   logger,
	}
}

// relationship builds the relationship from the player set by the player
// middleware and the requested partner.
func relationship(c *gin.Context, partner string) (dialog.Relationship, bool) {
	value, exists := c.Get("playerID")
	if !exists {
		respondWithClientError(c, http.StatusUnauthorized, "player not identified")
		return dialog.Relationship{}, false
	}
	rel := dialog.Relationship{PlayerID: value.(uuid.UUID), PartnerID: partner}
	if err := rel.Validate(); err != nil {
		respondWithClientError(c, http.StatusBadRequest, err.Error())
		return dialog.Relationship{}, false
	}
	return rel, true
}

// Reply answers every sentence of the player's input.
func (h *DialogHandler) Reply(c *gin.Context) {
	var req types.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	rel, ok := relationship(c, req.Partner)
	if !ok {
		return
	}

	results, err := h.engine.Reply(c.Request.Context(), rel, req.Text)
	if err != nil {
		respondWithEngineError(c, err, h.logger, zap.String("relationship", rel.Key()))
		return
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	c.JSON(http.StatusOK, types.ReplyResponse{
		Partner: rel.PartnerID,
		Replies: results,
		HTML:    h.renderer.RenderAll(texts),
	})
}

// Keywords returns the keywords the engine extracts from one sentence.
func (h *DialogHandler) Keywords(c *gin.Context) {
	var req types.KeywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	rel, ok := relationship(c, req.Partner)
	if !ok {
		return
	}

	kws, err := h.engine.GenerateKeywords(c.Request.Context(), rel, req.Sentence)
	if err != nil {
		respondWithEngineError(c, err, h.logger, zap.String("relationship", rel.Key()))
		return
	}
	c.JSON(http.StatusOK, types.KeywordsResponse{Keywords: kws})
}

// Options completes partially typed input with the asks of available rows.
func (h *DialogHandler) Options(c *gin.Context) {
	var req types.OptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	rel, ok := relationship(c, req.Partner)
	if !ok {
		return
	}

	options := h.engine.FindAskOptions(c.Request.Context(), rel, req.Partial)
	if options == nil {
		options = []string{}
	}
	c.JSON(http.StatusOK, types.OptionsResponse{Options: options})
}
