package webserver

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/playforge/catalog/src/api/proposal"
	"github.com/playforge/catalog/src/api/types"
)

type Proposals struct {
	store     *proposal.Store
	coord     *proposal.Coordinator
	chains    *proposal.Chains
	sanitizer *bluemonday.Policy
}

func NewProposals(db *gorm.DB, rdb *redis.Client) Proposals {
	// Strict policy for editor-supplied rich text; catalog descriptions
	// keep basic formatting only.
	sanitizer := bluemonday.StrictPolicy()
	sanitizer.AllowElements("p", "br", "strong", "em", "code", "pre", "blockquote")
	sanitizer.AllowElements("ul", "ol", "li")

	return Proposals{
		store:     proposal.NewStore(db),
		coord:     proposal.NewCoordinator(db, rdb),
		chains:    proposal.NewChains(db),
		sanitizer: sanitizer,
	}
}

func actorFrom(c *gin.Context) proposal.Actor {
	return proposal.Actor{
		ID:    c.GetString("uid"),
		Admin: c.GetString("role") == types.RoleAdmin,
	}
}

// respondErr maps taxonomy errors onto stable responses. Anything outside
// the taxonomy is logged and hidden behind a generic 500 body.
func respondErr(c *gin.Context, err error) {
	status := proposal.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"err": "internal error"})
		return
	}
	c.JSON(status, gin.H{"err": err.Error()})
}

// sanitizeSnapshot scrubs every string in the snapshot, including strings
// nested in arrays and objects, before anything reaches the Metadata column.
func (p Proposals) sanitizeSnapshot(snap types.JSONMap) types.JSONMap {
	for k, v := range snap {
		snap[k] = p.sanitizeValue(v)
	}
	return snap
}

func (p Proposals) sanitizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return p.sanitizer.Sanitize(t)
	case []interface{}:
		for i, e := range t {
			t[i] = p.sanitizeValue(e)
		}
		return t
	case map[string]interface{}:
		for k, e := range t {
			t[k] = p.sanitizeValue(e)
		}
		return t
	default:
		return v
	}
}

func (p Proposals) Submit(c *gin.Context) {
	var req struct {
		Kind     string        `json:"kind" binding:"required,oneof=create update"`
		GameID   string        `json:"gameId"`
		Snapshot types.JSONMap `json:"snapshot" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	var gameID *string
	if req.GameID != "" {
		gameID = &req.GameID
	}

	prop, err := p.store.Submit(req.Kind, gameID, c.GetString("uid"), p.sanitizeSnapshot(req.Snapshot))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": prop})
}

func (p Proposals) List(c *gin.Context) {
	offset, limit := pagination(c)
	props, err := p.store.ListAll(c.Query("status"), offset, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": props})
}

func (p Proposals) ListMine(c *gin.Context) {
	offset, limit := pagination(c)
	props, err := p.store.ListMine(c.GetString("uid"), c.Query("status"), offset, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": props})
}

func (p Proposals) Get(c *gin.Context) {
	prop, err := p.store.Get(c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	actor := actorFrom(c)
	if !actor.Admin && prop.EditorID != actor.ID {
		respondErr(c, proposal.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prop})
}

func (p Proposals) Update(c *gin.Context) {
	var req struct {
		Snapshot types.JSONMap `json:"snapshot" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	prop, err := p.store.UpdateSnapshot(c.Param("id"), c.GetString("uid"), p.sanitizeSnapshot(req.Snapshot))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prop})
}

func (p Proposals) Approve(c *gin.Context) {
	var req struct {
		Feedback string `json:"feedback"`
	}
	_ = c.ShouldBindJSON(&req) // feedback optional on approve

	gameID, err := p.coord.Approve(c.Request.Context(), c.Param("id"), actorFrom(c),
		p.sanitizer.Sanitize(req.Feedback))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gameId": gameID})
}

func (p Proposals) Decline(c *gin.Context) {
	var req struct {
		Feedback string `json:"feedback"`
	}
	// Malformed bodies get the bind error; a blank feedback field is the
	// engine's call and comes back as its own error.
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	err := p.coord.Decline(c.Request.Context(), c.Param("id"), actorFrom(c),
		p.sanitizer.Sanitize(req.Feedback))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (p Proposals) Revise(c *gin.Context) {
	var req struct {
		Snapshot types.JSONMap `json:"snapshot"`
	}
	// Body is optional; without a snapshot the revision starts from the
	// declined one.
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Snapshot = nil
	}

	var snap types.JSONMap
	if req.Snapshot != nil {
		snap = p.sanitizeSnapshot(req.Snapshot)
	}

	successor, err := p.chains.Revise(c.Request.Context(), c.Param("id"), actorFrom(c), snap)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": successor})
}

func (p Proposals) AcknowledgeFeedback(c *gin.Context) {
	err := p.chains.AcknowledgeFeedback(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (p Proposals) Delete(c *gin.Context) {
	if err := p.store.Delete(c.Param("id"), actorFrom(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.Query("offset"))
	limit, _ = strconv.Atoi(c.Query("limit"))
	return offset, limit
}
