package main

import "testing"

func TestSplitDebugLevelGlobalOnly(t *testing.T) {
	levels := splitDebugLevel("debug")
	if levels[""] != "debug" {
		t.Fatalf("levels[\"\"] = %q, want debug", levels[""])
	}
}

func TestSplitDebugLevelPerSubsystem(t *testing.T) {
	levels := splitDebugLevel("info,FRGN=debug,CTRL=trace")
	if levels[""] != "info" || levels["FRGN"] != "debug" || levels["CTRL"] != "trace" {
		t.Fatalf("unexpected parse: %#v", levels)
	}
}

func TestSetLogLevelsRejectsUnknownSubsystem(t *testing.T) {
	if err := setLogLevels("ZZZZ=debug"); err == nil {
		t.Fatal("expected an error for an unknown subsystem tag")
	}
}

func TestSetLogLevelsRejectsBadLevel(t *testing.T) {
	if err := setLogLevels("not-a-level"); err == nil {
		t.Fatal("expected an error for an unrecognized level")
	}
}
