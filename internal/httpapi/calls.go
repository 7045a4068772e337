package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/niggl1/interfoneapp/internal/auth"
	"github.com/niggl1/interfoneapp/internal/calls"
)

type createCallRequest struct {
	ReceiverID string `json:"receiverId"`
	UnitKey    string `json:"unitKey"`
	CallType   string `json:"callType" binding:"required"`
}

func identityFrom(c *gin.Context) auth.Identity {
	id, _ := c.MustGet("identity").(auth.Identity)
	return id
}

// CreateCall handles POST /v1/calls. The target is named directly or
// resolved from a unit key through the directory.
func (a *API) CreateCall(c *gin.Context) {
	var req createCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	receiverID := strings.TrimSpace(req.ReceiverID)
	if receiverID == "" && strings.TrimSpace(req.UnitKey) != "" {
		resolved, err := a.dir.ResolveReceiver(c.Request.Context(), req.UnitKey)
		if err != nil {
			a.writeError(c, err)
			return
		}
		receiverID = resolved
	}

	call, err := a.calls.CreateCall(c.Request.Context(), calls.CreateCallInput{
		Caller:     identityFrom(c),
		ReceiverID: receiverID,
		Type:       calls.CallType(strings.ToUpper(req.CallType)),
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, call)
}

// AnswerCall handles POST /v1/calls/:id/answer.
func (a *API) AnswerCall(c *gin.Context) {
	call, err := a.calls.AnswerCall(c.Request.Context(), c.Param("id"), identityFrom(c))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// RejectCall handles POST /v1/calls/:id/reject.
func (a *API) RejectCall(c *gin.Context) {
	call, err := a.calls.RejectCall(c.Request.Context(), c.Param("id"), identityFrom(c))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// EndCall handles POST /v1/calls/:id/end. Ending an already finished call
// returns the record as it stands.
func (a *API) EndCall(c *gin.Context) {
	call, err := a.calls.EndCall(c.Request.Context(), c.Param("id"), identityFrom(c))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// ActiveCall handles GET /v1/calls/active.
func (a *API) ActiveCall(c *gin.Context) {
	call, ok, err := a.calls.ActiveCallFor(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": true, "call": call})
}

// History handles GET /v1/calls.
func (a *API) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	records, err := a.calls.HistoryFor(c.Request.Context(), c.GetString("user_id"), limit)
	if err != nil {
		a.writeError(c, err)
		return
	}
	if records == nil {
		records = []calls.Call{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": records})
}

// GetCall handles GET /v1/calls/:id. Only a party to the call may read it.
func (a *API) GetCall(c *gin.Context) {
	call, err := a.calls.GetCall(c.Request.Context(), c.Param("id"), identityFrom(c))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}
