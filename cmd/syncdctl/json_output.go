package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// unavailableView is the --json body written when an action is not offered.
type unavailableView struct {
	Path      string   `json:"path"`
	Verb      string   `json:"verb"`
	Error     string   `json:"error"`
	Available []string `json:"available"`
}

func writeJSON(cmd *cobra.Command, v any) error {
	return encodeJSON(cmd.OutOrStdout(), v)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
