package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetDebugTogglesLevel(t *testing.T) {
	var buf bytes.Buffer
	L.SetOutput(&buf)
	defer L.SetOutput(os.Stderr)
	defer SetDebug(false)

	SetDebug(false)
	Debugf("hidden %d", 1)
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message logged while debug is off")
	}

	SetDebug(true)
	Debugf("shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("debug message missing from output: %q", buf.String())
	}

	Infof("info %s", "line")
	Warnf("warn %s", "line")
	Errorf("error %s", "line")
	for _, want := range []string{"info line", "warn line", "error line"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output is missing %q", want)
		}
	}
}
