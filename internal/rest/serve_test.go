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


package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mkammer/gpiv/internal/compute"
	"github.com/mkammer/gpiv/internal/piv"
)

func TestGetPing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r:=router(compute.NewContextWith(1))
	w:=httptest.NewRecorder()
	req, _:=http.NewRequest("GET", "/api/v1/ping", nil)
	r.ServeHTTP(w, req)
	if w.Code!=http.StatusOK { t.Fatalf("status %d, expected %d", w.Code, http.StatusOK) }
	if !bytes.Contains(w.Body.Bytes(), []byte("pong")) { t.Errorf("body %s misses pong", w.Body.String()) }
}

func TestPostPIV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r:=router(compute.NewContextWith(2))

	ht, wd:=128, 128
	zero:=make([]int32, ht*wd)
	body, err:=json.Marshal(map[string]interface{}{
		"height": ht, "width": wd, "frameA": zero, "frameB": zero,
	})
	if err!=nil { t.Fatal(err) }
	w:=httptest.NewRecorder()
	req, _:=http.NewRequest("POST", "/api/v1/piv", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code!=http.StatusOK { t.Fatalf("status %d, expected %d: %s", w.Code, http.StatusOK, w.Body.String()) }

	var res piv.Result
	if err:=json.Unmarshal(w.Body.Bytes(), &res); err!=nil { t.Fatal(err) }
	if res.NRow<1 || res.NCol<1 || len(res.U)!=res.NRow*res.NCol {
		t.Errorf("malformed result %dx%d with %d vectors", res.NRow, res.NCol, len(res.U))
	}
}

func TestPostPIVBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r:=router(compute.NewContextWith(1))
	w:=httptest.NewRecorder()
	req, _:=http.NewRequest("POST", "/api/v1/piv", bytes.NewReader([]byte(`{"height":0}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code!=http.StatusBadRequest { t.Fatalf("status %d, expected %d", w.Code, http.StatusBadRequest) }
}
