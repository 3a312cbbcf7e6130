package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("object %d missing")
	if got != "object %d missing" {
		t.Errorf("custom logger saw %q", got)
	}

	// nil installs a no-op, not the previous logger.
	called := false
	SetLogger(func(string, ...interface{}) { called = true })
	SetLogger(nil)
	Logf("dropped")
	if called {
		t.Error("muted logger still invoked the previous one")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf is nil by default")
	}
}
