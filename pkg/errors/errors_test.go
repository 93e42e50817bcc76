package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("row locked")
	err := Wrap(CodeConcurrencyConflict, cause, "claim commissions")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be discoverable")
	}
	if err.Code() != CodeConcurrencyConflict {
		t.Fatalf("unexpected code %q", err.Code())
	}
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	inner := New(CodeInsufficientBalance, "requested 10000, available 5000")
	outer := fmt.Errorf("payout request: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatalf("expected typed error")
	}
	if typed.Code() != CodeInsufficientBalance {
		t.Fatalf("unexpected code %q", typed.Code())
	}
}

func TestMetadataForPolicyCodes(t *testing.T) {
	cases := map[Code]int{
		CodeBelowMinimum:         http.StatusUnprocessableEntity,
		CodeInsufficientBalance:  http.StatusUnprocessableEntity,
		CodeMissingPayoutDetails: http.StatusUnprocessableEntity,
		CodeConcurrencyConflict:  http.StatusConflict,
	}
	for code, want := range cases {
		meta := MetadataFor(code)
		if meta.HTTPStatus != want {
			t.Errorf("%s: got status %d, want %d", code, meta.HTTPStatus, want)
		}
		if !meta.DetailsAllowed {
			t.Errorf("%s: policy errors must surface details", code)
		}
	}
}

type fakeState string

func (s fakeState) String() string { return string(s) }

func TestInvalidTransitionCarriesDiagnostics(t *testing.T) {
	err := InvalidTransition(fakeState("pending"), "confirm_delivery")

	if err.Code() != CodeStateConflict {
		t.Fatalf("unexpected code %q", err.Code())
	}
	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", err.Details())
	}
	if details["current"] != "pending" || details["attempted"] != "confirm_delivery" {
		t.Fatalf("unexpected details %#v", details)
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeBelowMinimum, "too small"))
	if !HasCode(err, CodeBelowMinimum) {
		t.Fatalf("expected HasCode to match through wrapping")
	}
	if HasCode(err, CodeInsufficientBalance) {
		t.Fatalf("HasCode matched wrong code")
	}
}
