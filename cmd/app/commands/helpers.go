// Package commands contains CLI command implementations for the application.
package commands

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	secretsDomain "github.com/allisson/secretsgroup/internal/secrets/domain"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// parseTime parses RFC 3339, "YYYY-MM-DD HH:MM:SS" or "YYYY-MM-DD" in UTC.
func parseTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format (expected RFC 3339, YYYY-MM-DD or YYYY-MM-DD HH:MM:SS): %s",
		value,
	)
}

// parseOptionalTime returns nil for an empty value.
func parseOptionalTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseTime(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseTimePatch maps "" to keep, "none" to clear and anything else to a new value.
func parseTimePatch(value string) (secretsDomain.Patch[time.Time], error) {
	switch value {
	case "":
		return secretsDomain.Patch[time.Time]{}, nil
	case "none":
		return secretsDomain.Clear[time.Time](), nil
	}
	t, err := parseTime(value)
	if err != nil {
		return secretsDomain.Patch[time.Time]{}, err
	}
	return secretsDomain.Set(t), nil
}

// readSecretValue returns value, or reads it from reader when value is "-".
func readSecretValue(reader io.Reader, value string) ([]byte, error) {
	if value != "-" {
		return []byte(value), nil
	}
	b, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret value: %w", err)
	}
	return []byte(strings.TrimRight(string(b), "\r\n")), nil
}

// displayValue renders binary values as standard base64.
func displayValue(v secretsDomain.SecretValue) string {
	if v.Type == secretsDomain.SecretTypeBinary {
		return base64.StdEncoding.EncodeToString(v.Bytes())
	}
	return v.Text()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// rawEntryView is the output of commands that never decrypt.
type rawEntryView struct {
	SecretIdentifier string     `json:"secret_identifier"`
	Version          uint64     `json:"version"`
	State            string     `json:"state"`
	NotBefore        *time.Time `json:"not_before,omitempty"`
	NotAfter         *time.Time `json:"not_after,omitempty"`
}

func newRawEntryView(e secretsDomain.RawSecretEntry) rawEntryView {
	return rawEntryView{
		SecretIdentifier: string(e.SecretIdentifier),
		Version:          e.Version,
		State:            e.State.String(),
		NotBefore:        e.NotBefore,
		NotAfter:         e.NotAfter,
	}
}

// secretEntryView is the output of commands returning decrypted versions.
type secretEntryView struct {
	rawEntryView
	Value      string    `json:"value"`
	ValueType  string    `json:"value_type"`
	UserData   string    `json:"user_data,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	Created    time.Time `json:"created"`
	Modified   time.Time `json:"modified"`
	CreatedBy  string    `json:"created_by"`
	ModifiedBy string    `json:"modified_by"`
}

func newSecretEntryView(e *secretsDomain.SecretEntry) secretEntryView {
	view := secretEntryView{
		rawEntryView: rawEntryView{
			SecretIdentifier: string(e.SecretIdentifier),
			Version:          e.Version,
			State:            e.State.String(),
			NotBefore:        e.NotBefore,
			NotAfter:         e.NotAfter,
		},
		Value:      displayValue(e.SecretValue),
		ValueType:  e.SecretValue.Type.String(),
		UserData:   string(e.UserData),
		Created:    e.Created,
		Modified:   e.Modified,
		CreatedBy:  string(e.CreatedBy),
		ModifiedBy: string(e.ModifiedBy),
	}
	if e.Comment != nil {
		view.Comment = string(*e.Comment)
	}
	return view
}

func writeJSON(writer io.Writer, v any) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to output JSON: %w", err)
	}
	return nil
}

func writeRawEntryText(writer io.Writer, e secretsDomain.RawSecretEntry) {
	_, _ = fmt.Fprintf(writer, "%s\tv%d\t%s\tnot_before=%s\tnot_after=%s\n",
		e.SecretIdentifier,
		e.Version,
		e.State,
		formatTime(e.NotBefore),
		formatTime(e.NotAfter),
	)
}

func writeSecretEntryText(writer io.Writer, e *secretsDomain.SecretEntry) {
	_, _ = fmt.Fprintf(writer, "Secret:      %s\n", e.SecretIdentifier)
	_, _ = fmt.Fprintf(writer, "Version:     %d\n", e.Version)
	_, _ = fmt.Fprintf(writer, "State:       %s\n", e.State)
	_, _ = fmt.Fprintf(writer, "Not Before:  %s\n", formatTime(e.NotBefore))
	_, _ = fmt.Fprintf(writer, "Not After:   %s\n", formatTime(e.NotAfter))
	if e.Comment != nil {
		_, _ = fmt.Fprintf(writer, "Comment:     %s\n", *e.Comment)
	}
	_, _ = fmt.Fprintf(writer, "Created:     %s by %s\n", e.Created.UTC().Format(time.RFC3339), e.CreatedBy)
	_, _ = fmt.Fprintf(writer, "Modified:    %s by %s\n", e.Modified.UTC().Format(time.RFC3339), e.ModifiedBy)
	_, _ = fmt.Fprintf(writer, "Value:       %s\n", displayValue(e.SecretValue))
}
