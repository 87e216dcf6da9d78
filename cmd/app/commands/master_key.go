package commands

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
)

// RunCreateMasterKey generates a 32-byte master key for the master-key encryptor and
// prints the MASTER_KEYS and ACTIVE_MASTER_KEY_ID settings using it.
// If keyID is empty, generates a default ID in format "master-key-YYYY-MM-DD".
//
// When existingKeys is set the new key is appended to it and becomes the active key, so
// versions written with older keys stay readable after the rotation.
func RunCreateMasterKey(
	logger *slog.Logger,
	writer io.Writer,
	keyID string,
	existingKeys string,
) error {
	if keyID == "" {
		keyID = fmt.Sprintf("master-key-%s", time.Now().Format("2006-01-02"))
	}

	masterKey := make([]byte, 32)
	defer cryptoDomain.Zero(masterKey)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}

	masterKeys := keyID + ":" + base64.StdEncoding.EncodeToString(masterKey)
	if existingKeys != "" {
		for part := range strings.SplitSeq(existingKeys, ",") {
			if id, _, _ := strings.Cut(strings.TrimSpace(part), ":"); id == keyID {
				return fmt.Errorf("master key %s already exists", keyID)
			}
		}
		masterKeys = existingKeys + "," + masterKeys
	}

	// Malformed existing keys fail here, before anything is printed.
	chain, err := cryptoDomain.LoadMasterKeyChain(masterKeys, keyID)
	if err != nil {
		return fmt.Errorf("invalid master key configuration: %w", err)
	}
	chain.Close()

	logger.Info("master key generated",
		slog.String("key_id", keyID),
		slog.Bool("rotation", existingKeys != ""),
	)

	_, _ = fmt.Fprintln(writer, "# Master Key Configuration")
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "ENCRYPTOR=\"master-key\"\n")
	_, _ = fmt.Fprintf(writer, "MASTER_KEYS=\"%s\"\n", masterKeys)
	_, _ = fmt.Fprintf(writer, "ACTIVE_MASTER_KEY_ID=\"%s\"\n", keyID)
	return nil
}
