package main

import (
	"bytes"
	"strings"
	"testing"

	"syncdctl/internal/ipc"
	"syncdctl/internal/protocol"
)

func TestRenderStatusLineColor(t *testing.T) {
	plain := renderStatusLine("Status", statusOK, "up to date", false)
	if strings.Contains(plain, "\x1b[") {
		t.Fatalf("plain line should not carry escapes: %q", plain)
	}
	if !strings.Contains(plain, "[OK] up to date") {
		t.Fatalf("unexpected line %q", plain)
	}
	colored := renderStatusLine("Status", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestSyncStateKind(t *testing.T) {
	cases := map[string]statusKind{
		"up to date":  statusOK,
		" Syncing ":   statusInfo,
		"downloading": statusInfo,
		"":            statusWarn,
		"quota full":  statusWarn,
	}
	for state, want := range cases {
		if got := syncStateKind(state); got != want {
			t.Errorf("syncStateKind(%q) = %v, want %v", state, got, want)
		}
	}
}

func TestPrintStatusFolderWithoutOptions(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, "/home/u/Dropbox", ipc.StatusResult{Kind: ipc.StatusFolder, State: "syncing"}, false)
	out := buf.String()
	for _, want := range []string{"== Folder ==", "Tag:", "(none)", "[INFO] syncing"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestRenderOptionsTable(t *testing.T) {
	out := renderOptionsTable(protocol.Options{
		{Name: "share", Flags: []string{"folder", "beta"}, Description: "Share this folder"},
		{Description: "Plain entry"},
	})
	for _, want := range []string{"OPTION", "DESCRIPTION", "share", "folder, beta", "Plain entry"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
}
