package validation

import (
	"encoding/json"
	"testing"

	"github.com/gin-gonic/gin/binding"
)

type registerPayload struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

func TestToFieldErrorsUsesJSONNames(t *testing.T) {
	Init()

	err := binding.Validator.ValidateStruct(&registerPayload{
		Name:     "",
		Email:    "not-an-email",
		Password: "123",
	})
	if err == nil {
		t.Fatal("expected validation errors")
	}

	errs := ToFieldErrors(err)
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3: %+v", len(errs), errs)
	}

	byField := map[string]string{}
	for _, fe := range errs {
		byField[fe.Field] = fe.Message
	}
	if byField["name"] != "is required" {
		t.Errorf("name: %q", byField["name"])
	}
	if byField["email"] != "must be a valid email" {
		t.Errorf("email: %q", byField["email"])
	}
	if byField["password"] == "" {
		t.Error("expected a password error")
	}
}

func TestToFieldErrorsInvalidJSON(t *testing.T) {
	var dst registerPayload
	err := json.Unmarshal([]byte("{"), &dst)
	if err == nil {
		t.Fatal("expected json error")
	}

	errs := ToFieldErrors(err)
	if len(errs) != 1 || errs[0].Field != "payload" {
		t.Fatalf("got %+v, want single payload error", errs)
	}
}

func TestToFieldErrorsNil(t *testing.T) {
	if got := ToFieldErrors(nil); got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}
