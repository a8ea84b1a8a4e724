package protocol_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"syncdctl/internal/protocol"
)

func TestEncodeRequestFraming(t *testing.T) {
	got, err := protocol.EncodeRequest(protocol.VerbContextAction, "verb", "share", "paths", "/home/u/Dropbox/a b")
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	want := "icon_overlay_context_action\nverb\tshare\npaths\t/home/u/Dropbox/a b\ndone\n"
	if string(got) != want {
		t.Fatalf("unexpected encoding\n got: %q\nwant: %q", got, want)
	}
	if !protocol.Complete(got) {
		t.Fatal("expected request to end with terminator line")
	}
}

func TestEncodeRequestRejectsFramingCharacters(t *testing.T) {
	cases := []protocol.Request{
		protocol.NewRequest(protocol.VerbFileStatus, "path", "/tmp/a\tb"),
		protocol.NewRequest(protocol.VerbFileStatus, "path", "/tmp/a\nb"),
		protocol.NewRequest(protocol.VerbFileStatus, "path", "done"),
		protocol.NewRequest(protocol.VerbFileStatus, "pa\tth", "/tmp/a"),
		protocol.NewRequest("done"),
		protocol.NewRequest(""),
	}
	for _, req := range cases {
		if _, err := req.Encode(); !errors.Is(err, protocol.ErrInvalidField) {
			t.Fatalf("expected ErrInvalidField for %+v, got %v", req, err)
		}
	}
}

func TestDecodeIsLeftInverseOfEncodeReply(t *testing.T) {
	replies := []protocol.Reply{
		{Status: "ok", Lines: []string{"status\tup to date"}},
		{Status: "ok"},
		{Status: "notok", Detail: "path does not exist"},
		{Status: "ok", Lines: []string{"options\ta~b~c", "", "extra"}},
	}
	for _, want := range replies {
		got, err := protocol.Decode(protocol.EncodeReply(want))
		if err != nil {
			t.Fatalf("Decode(%+v): %v", want, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
		}
	}
}

func TestDecodeFileStatusScenario(t *testing.T) {
	reply, err := protocol.Decode([]byte("ok\nok\tup to date\tshare~Share this folder\ndone\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reply.OK() {
		t.Fatalf("expected ok reply, got %q", reply.Status)
	}
	line, err := reply.Line(protocol.VerbFileStatus, 0)
	if err != nil {
		t.Fatalf("Line: %v", err)
	}
	state, unwatched, err := protocol.DecodeStatus(line)
	if err != nil || unwatched {
		t.Fatalf("DecodeStatus = %q, %v, %v", state, unwatched, err)
	}
	if state != "up to date" {
		t.Fatalf("unexpected state %q", state)
	}

	opts, err := protocol.DecodeOptions("options\tshare~Share this folder")
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}
	want := protocol.Options{{Name: "share", Description: "Share this folder"}}
	if !reflect.DeepEqual(opts, want) {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestDecodeNotOKCarriesMessage(t *testing.T) {
	reply, err := protocol.Decode([]byte("notok\tpath does not exist\ndone\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if reply.OK() {
		t.Fatal("expected refused reply")
	}
	err = reply.Err(protocol.VerbFileStatus)
	var derr *protocol.DaemonError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DaemonError, got %T", err)
	}
	if derr.Message != "path does not exist" {
		t.Fatalf("unexpected message %q", derr.Message)
	}
}

func TestDaemonErrorFallsBackToPayloadLine(t *testing.T) {
	reply, err := protocol.Decode([]byte("notok\nerror\tnot watched\ndone\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var derr *protocol.DaemonError
	if !errors.As(reply.Err(""), &derr) || derr.Message != "not watched" {
		t.Fatalf("unexpected error %v", reply.Err(""))
	}
}

func TestDecodeEmptyReplyIsViolation(t *testing.T) {
	for _, raw := range []string{"", "\n", "done\n"} {
		if _, err := protocol.Decode([]byte(raw)); !errors.Is(err, protocol.ErrProtocolViolation) {
			t.Fatalf("Decode(%q) expected violation, got %v", raw, err)
		}
	}
}

func TestDecodeStatusUnwatched(t *testing.T) {
	_, unwatched, err := protocol.DecodeStatus("ok\tunwatched\tignored\tpayload")
	if err != nil {
		t.Fatalf("DecodeStatus: %v", err)
	}
	if !unwatched {
		t.Fatal("expected unwatched")
	}
}

func TestDecodeMalformedLinesAreViolations(t *testing.T) {
	if _, _, err := protocol.DecodeStatus("status"); !errors.Is(err, protocol.ErrProtocolViolation) {
		t.Fatalf("DecodeStatus expected violation, got %v", err)
	}
	if _, err := protocol.DecodeFolderTag("tag"); !errors.Is(err, protocol.ErrProtocolViolation) {
		t.Fatalf("DecodeFolderTag expected violation, got %v", err)
	}
	if _, err := protocol.DecodeOptions(""); !errors.Is(err, protocol.ErrProtocolViolation) {
		t.Fatalf("DecodeOptions expected violation, got %v", err)
	}
	reply := protocol.Reply{Status: "ok"}
	if _, err := reply.Line(protocol.VerbFolderTag, 0); !errors.Is(err, protocol.ErrProtocolViolation) {
		t.Fatalf("Line expected violation, got %v", err)
	}
}

func TestDecodeOptionsAttributes(t *testing.T) {
	opts, err := protocol.DecodeOptions("options\ta~b~desc\tdesc only\t\tshare~x~y~Share")
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}
	if len(opts) != 3 {
		t.Fatalf("expected 3 options, got %d", len(opts))
	}
	if got := opts[0].Attributes(); !reflect.DeepEqual(got, []string{"a", "b"}) || opts[0].Description != "desc" {
		t.Fatalf("unexpected first option %+v", opts[0])
	}
	if len(opts[1].Attributes()) != 0 || opts[1].Description != "desc only" {
		t.Fatalf("unexpected description-only option %+v", opts[1])
	}
	if opts[2].Name != "share" || !reflect.DeepEqual(opts[2].Flags, []string{"x", "y"}) {
		t.Fatalf("unexpected flagged option %+v", opts[2])
	}
	if got := opts.Names(); !reflect.DeepEqual(got, []string{"a", "desc only", "share"}) {
		t.Fatalf("unexpected names %v", got)
	}
}

func TestOptionsLookupIsCaseSensitive(t *testing.T) {
	opts := protocol.Options{{Name: "share", Description: "Share"}}
	if _, ok := opts.Lookup("Share"); ok {
		t.Fatal("lookup must be case-sensitive")
	}
	if !opts.Allows("share") {
		t.Fatal("expected share to be allowed")
	}
	if opts.Allows("browse") {
		t.Fatal("browse is not advertised")
	}
	if !opts.Allows(protocol.AlwaysAllowedAction) {
		t.Fatal("gallery action is always allowed")
	}
}

func TestScanNotificationsConfirmsAfterHeartbeats(t *testing.T) {
	scan := protocol.ScanNotifications([]byte("nop\ndone\nnop\ndone\nlaunch_url\nhttp://example.com/x\n"))
	if scan.Confirmation == nil {
		t.Fatal("expected confirmation")
	}
	if scan.Confirmation.Effect != protocol.EffectLaunchURL || scan.Confirmation.Payload != "http://example.com/x" {
		t.Fatalf("unexpected confirmation %+v", scan.Confirmation)
	}
	if scan.Heartbeats != 4 {
		t.Fatalf("expected 4 heartbeat lines, got %d", scan.Heartbeats)
	}
	if len(scan.Rest) != 0 {
		t.Fatalf("expected empty rest, got %q", scan.Rest)
	}
}

func TestScanNotificationsKeepsIncompleteInput(t *testing.T) {
	scan := protocol.ScanNotifications([]byte("nop\ndone\ncopy_to_clipboard\nhttps://exa"))
	if scan.Confirmation != nil {
		t.Fatalf("payload is incomplete, got %+v", scan.Confirmation)
	}
	if string(scan.Rest) != "copy_to_clipboard\nhttps://exa" {
		t.Fatalf("unexpected rest %q", scan.Rest)
	}

	next := protocol.ScanNotifications(append(scan.Rest, []byte("mple.com\nnop\n")...))
	if next.Confirmation == nil || next.Confirmation.Effect != protocol.EffectClipboardCopy {
		t.Fatalf("expected clipboard confirmation, got %+v", next.Confirmation)
	}
	if next.Confirmation.Payload != "https://example.com" {
		t.Fatalf("unexpected payload %q", next.Confirmation.Payload)
	}
	if string(next.Rest) != "nop\n" {
		t.Fatalf("unexpected rest %q", next.Rest)
	}

	partial := protocol.ScanNotifications([]byte("no"))
	if partial.Confirmation != nil || string(partial.Rest) != "no" {
		t.Fatalf("partial line must be kept, got %+v", partial)
	}
}

func TestScanNotificationsNeverConfirmsHeartbeats(t *testing.T) {
	scan := protocol.ScanNotifications([]byte(strings.Repeat("nop\ndone\n", 50)))
	if scan.Confirmation != nil {
		t.Fatalf("heartbeats must not confirm, got %+v", scan.Confirmation)
	}
	if scan.Heartbeats != 100 || len(scan.Rest) != 0 {
		t.Fatalf("unexpected scan %+v", scan)
	}
}

func TestConfirmationValueStripsLabel(t *testing.T) {
	c := protocol.Confirmation{Effect: protocol.EffectLaunchURL, Payload: "url\thttps://example.com"}
	if c.Value() != "https://example.com" {
		t.Fatalf("unexpected value %q", c.Value())
	}
	if protocol.EffectShellTouch.Command() != "shell_touch" {
		t.Fatalf("unexpected command %q", protocol.EffectShellTouch.Command())
	}
}
