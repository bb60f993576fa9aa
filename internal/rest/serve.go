// Copyright (C) 2021 The gpiv authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


// REST API for remote PIV analysis.
package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkammer/gpiv/internal/compute"
	"github.com/mkammer/gpiv/internal/piv"
)

var ctx *compute.Context

// Starts the HTTP server on the given port. Does not return unless the
// server fails.
func Serve(c *compute.Context, port int) error {
	r:=router(c)
	return r.Run(fmt.Sprintf(":%d", port))
}

func router(c *compute.Context) *gin.Engine {
	ctx=c
	r:=gin.Default()
	api:=r.Group("/api")
	v1:=api.Group("/v1")
	v1.GET("/ping", getPing)
	v1.GET("/device", getDevice)
	v1.POST("/piv", postPIV)
	return r
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func getDevice(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"device": ctx.Describe(), "freeMemory": ctx.FreeMemory()})
}

// Analysis request. Frames are row-major gray intensity planes, the mask
// is optional. Config defaults apply to all omitted parameters.
type pivRequest struct {
	Height int         `json:"height" binding:"required"`
	Width  int         `json:"width"  binding:"required"`
	FrameA []int32     `json:"frameA" binding:"required"`
	FrameB []int32     `json:"frameB" binding:"required"`
	Mask   []int32     `json:"mask"`
	Config *piv.Config `json:"config"`
}

func postPIV(c *gin.Context) {
	var req pivRequest
	if err:=c.ShouldBind(&req); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg:=req.Config
	if cfg==nil { cfg=piv.NewConfig() }
	res, err:=piv.Process(ctx, req.FrameA, req.FrameB, req.Height, req.Width, req.Mask, cfg, nil)
	if err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
