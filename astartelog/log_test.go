package astartelog

import "testing"

func TestNopLogger_NeverPanics(t *testing.T) {
	Nop.Debugf("x %d", 1)
	Nop.Infof("x")
	Nop.Warnf("x %s", "y")
	Nop.Errorf("x %v", nil)
}

func TestDefault_SatisfiesLogger(t *testing.T) {
	var l Logger = Default
	if l == nil {
		t.Fatal("Default is nil")
	}
}
