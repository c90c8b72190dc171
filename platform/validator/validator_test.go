package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Color string `json:"color" validate:"omitempty,color"`
}

func TestFieldErrorsUsesJSONNames(t *testing.T) {
	val := New()
	if err := val.RegisterValidation("color", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "red"
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := val.Struct(sample{Email: "not-an-email", Color: "blue"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := FieldErrors(err)
	if fields["name"] != "required" {
		t.Fatalf("expected name=required, got %v", fields)
	}
	if fields["email"] != "email" {
		t.Fatalf("expected email=email, got %v", fields)
	}
	if fields["color"] != "color" {
		t.Fatalf("expected custom rule on color, got %v", fields)
	}
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	if FieldErrors(nil) != nil {
		t.Fatal("nil error must map to nil")
	}
}
