// Package control implements the JSON-over-HTTP control plane and the
// real-time event WebSocket, wiring gin-gonic/gin handlers to a Router
// and a Store.
package control

import "github.com/gin-gonic/gin"

// envelope is the uniform response shape: every response carries
// either success+data or success=false+error.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errBody    `json:"error,omitempty"`
}

type errBody struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, message string, err error) {
	body := &errBody{Message: message}
	if err != nil {
		body.Details = err.Error()
	}
	c.JSON(status, envelope{Success: false, Error: body})
}
