package handlers

import (
	"net/http"

	"dialog-agent/corpus"
	"dialog-agent/dialog"
	"dialog-agent/utils"
	"dialog-agent/web/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PartnerHandler exposes the tables a partner makes available to the player.
type PartnerHandler struct {
	engine *dialog.Engine
	logger *zap.Logger
}

func NewPartnerHandler(engine *dialog.Engine, logger *zap.Logger) *PartnerHandler {
	return &PartnerHandler{engine: engine, logger: logger}
}

func (h *PartnerHandler) respondTables(c *gin.Context, rel dialog.Relationship) {
	ids := h.engine.Tables(rel)
	tables := make([]string, len(ids))
	for i, id := range ids {
		tables[i] = string(id)
	}
	c.JSON(http.StatusOK, types.TablesResponse{Partner: rel.PartnerID, Tables: tables})
}

func tableParam(c *gin.Context) (corpus.TableID, bool) {
	id := c.Param("table")
	if !utils.ValidIdentifier(id) {
		respondWithClientError(c, http.StatusBadRequest, "invalid table id")
		return "", false
	}
	return corpus.TableID(id), true
}

// ListTables returns the partner's tables, registering the initial ones on
// first contact.
func (h *PartnerHandler) ListTables(c *gin.Context) {
	rel, ok := relationship(c, c.Param("partner"))
	if !ok {
		return
	}
	if _, err := h.engine.RegisterInitialTables(c.Request.Context(), rel); err != nil {
		respondWithEngineError(c, err, h.logger, zap.String("relationship", rel.Key()))
		return
	}
	h.respondTables(c, rel)
}

func (h *PartnerHandler) AddTable(c *gin.Context) {
	rel, ok := relationship(c, c.Param("partner"))
	if !ok {
		return
	}
	id, ok := tableParam(c)
	if !ok {
		return
	}
	if err := h.engine.RegisterTable(c.Request.Context(), rel, id); err != nil {
		respondWithEngineError(c, err, h.logger, zap.String("relationship", rel.Key()), zap.String("table", string(id)))
		return
	}
	h.logger.Debug("Table registered",
		zap.String("relationship", rel.Key()),
		zap.String("table", string(id)))
	h.respondTables(c, rel)
}

func (h *PartnerHandler) RemoveTable(c *gin.Context) {
	rel, ok := relationship(c, c.Param("partner"))
	if !ok {
		return
	}
	id, ok := tableParam(c)
	if !ok {
		return
	}
	if err := h.engine.UnregisterTable(c.Request.Context(), rel, id); err != nil {
		respondWithEngineError(c, err, h.logger, zap.String("relationship", rel.Key()), zap.String("table", string(id)))
		return
	}
	h.respondTables(c, rel)
}
