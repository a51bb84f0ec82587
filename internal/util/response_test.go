package util

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type bindReq struct {
	ClientID uint   `json:"client_id" binding:"required"`
	Status   string `json:"status" binding:"omitempty,oneof=draft pending"`
}

func TestBindIssues_UsesJSONNames(t *testing.T) {
	UseJSONFieldNames()

	err := binding.Validator.ValidateStruct(&bindReq{Status: "nope"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	issues := BindIssues(err)
	if len(issues) != 2 {
		t.Fatalf("issues = %+v", issues)
	}
	if issues[0].Field != "client_id" || issues[0].Rule != "required" {
		t.Errorf("first issue = %+v", issues[0])
	}
	if issues[1].Field != "status" || issues[1].Rule != "oneof" {
		t.Errorf("second issue = %+v", issues[1])
	}
}

func TestBindIssues_ParseError(t *testing.T) {
	issues := BindIssues(errors.New("unexpected EOF"))
	if len(issues) != 1 || issues[0].Field != "body" {
		t.Errorf("issues = %+v", issues)
	}
}

func TestValidationError_Envelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ValidationError(c, "invalid request", []Issue{{Field: "amount", Rule: "gt", Message: "must be greater than 0"}})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Code   int     `json:"code"`
		Issues []Issue `json:"issues"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != CodeInvalidParam || len(body.Issues) != 1 {
		t.Errorf("body = %+v", body)
	}
}
