package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("probe")
	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op logger that must not panic or forward.
	called = false
	SetLogger(nil)
	Logf("probe")
	if called {
		t.Error("no-op logger forwarded a message")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
	Logf("probe: %s", "value")
}
