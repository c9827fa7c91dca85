package validation

import (
	"errors"
	"strings"
	"testing"
)

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type score struct {
	Value int `validate:"gte=1,lte=5"`
}

func TestStruct(t *testing.T) {
	if err := Struct(credentials{Email: "a@b.co", Password: "secret"}); err != nil {
		t.Fatalf("valid credentials rejected: %v", err)
	}

	err := Struct(credentials{Email: "nope", Password: "123"})
	var vErr *Error
	if !errors.As(err, &vErr) {
		t.Fatalf("Struct() error = %v, want *Error", err)
	}
	if len(vErr.Fields) != 2 {
		t.Fatalf("fields = %+v, want 2", vErr.Fields)
	}
	if !strings.Contains(err.Error(), "email must be a valid email address") {
		t.Fatalf("message = %q", err.Error())
	}
	if !strings.Contains(err.Error(), "password must be at least 6 characters") {
		t.Fatalf("message = %q", err.Error())
	}
	if !IsValidation(err) {
		t.Fatal("IsValidation() = false")
	}
}

func TestStructRange(t *testing.T) {
	err := Struct(score{Value: 6})
	if err == nil || !strings.Contains(err.Error(), "value must be less than or equal to 5") {
		t.Fatalf("Struct(6) = %v", err)
	}
	if IsValidation(errors.New("other")) {
		t.Fatal("IsValidation() should be false for plain errors")
	}
}
