package database

import (
	"errors"
	"strings"
	"testing"

	"joke-plugin/internal/app"
	"joke-plugin/internal/dispatch"
)

func TestConnectionError(t *testing.T) {
	baseErr := errors.New("connection refused")
	err := &ConnectionError{
		Host: "localhost",
		Port: 5432,
		Err:  baseErr,
	}

	if !errors.Is(err, baseErr) {
		t.Error("Expected underlying error to be unwrapped")
	}

	var connErr *ConnectionError
	if !errors.As(error(err), &connErr) {
		t.Error("Expected errors.As to match *ConnectionError")
	}
}

func TestConnectionErrorMessage(t *testing.T) {
	err := &ConnectionError{
		Host: "postgres.example.com",
		Port: 5432,
		Err:  errors.New("connection refused"),
	}

	want := "failed to connect to database at postgres.example.com:5432: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDesignHostImplementsHost(t *testing.T) {
	var _ app.Host = (*DesignHost)(nil)
	var _ dispatch.Selection = (*selection)(nil)
}

func TestSelectionContents(t *testing.T) {
	a, b := "a", "b"
	sel := &selection{
		ids:   []int64{1, 2},
		items: []*dispatch.SelectedText{{Text: &a}, {Text: &b}},
	}

	for _, item := range sel.Contents() {
		*item.Text = "joke"
	}

	if a != "joke" || b != "joke" {
		t.Errorf("Contents() should expose mutable text, got %q %q", a, b)
	}
}

func TestHostIsBoundToDesign(t *testing.T) {
	repo := NewDesignRepository(&DB{})
	h := repo.Host(42)

	if h.designID != 42 {
		t.Errorf("designID = %d, want 42", h.designID)
	}
	if h.repo != repo {
		t.Error("host should keep its repository")
	}
}

func TestErrNoElementsSelected(t *testing.T) {
	if !strings.Contains(ErrNoElementsSelected.Error(), "select") {
		t.Errorf("unexpected message %q", ErrNoElementsSelected)
	}
}
