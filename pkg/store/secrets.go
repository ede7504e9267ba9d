// Copyright 2025 Skald Labs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@skaldlabs.dev
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/skaldlabs/skald/internal/errors"
)

// ParseSecretsKey decodes the SECRETS_KEY environment value: a hex-encoded
// 32-byte AES key (the output of `openssl rand -hex 32`).
func ParseSecretsKey(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(value)
	if err != nil || len(key) != 32 {
		return nil, errors.NewConfigError(
			"Secret store key is invalid",
			"SECRETS_KEY must be 64 hex characters (32 bytes)",
			"Generate a key with 'openssl rand -hex 32' and export SECRETS_KEY",
			err,
		)
	}
	return key, nil
}

func (s *Store) gcm() (cipher.AEAD, error) {
	if len(s.secretsKey) == 0 {
		return nil, errors.NewConfigError(
			"Secret store is not configured",
			"SECRETS_KEY environment variable is not set",
			"Generate a key with 'openssl rand -hex 32' and export SECRETS_KEY",
			nil,
		)
	}
	block, err := aes.NewCipher(s.secretsKey)
	if err != nil {
		return nil, errors.NewInternalError("Secret store cipher setup failed", "", "", err)
	}
	return cipher.NewGCM(block)
}

// PutSecret seals plaintext under serviceName, replacing any existing value.
func (s *Store) PutSecret(serviceName, plaintext string) error {
	aead, err := s.gcm()
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return errors.NewInternalError("Secret store nonce generation failed", "", "", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(serviceName))
	encoded := base64.StdEncoding.EncodeToString(sealed)

	now := formatTime(time.Now())
	_, err = s.db.Exec(`
		INSERT INTO api_keys (service_name, key_value_encrypted, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (service_name) DO UPDATE SET
			key_value_encrypted = excluded.key_value_encrypted,
			updated_at = excluded.updated_at`,
		serviceName, encoded, now, now)
	if err != nil {
		return errors.NewDatabaseError(
			"Cannot store the secret",
			fmt.Sprintf("insert into api_keys failed for %q", serviceName),
			"Check that the state database is writable",
			err,
		)
	}
	return nil
}

// GetSecret returns the plaintext for serviceName. A missing row is a
// not-found error; a value that fails to decrypt is a configuration error,
// which the API surface reports as 503.
func (s *Store) GetSecret(serviceName string) (string, error) {
	aead, err := s.gcm()
	if err != nil {
		return "", err
	}

	var encoded string
	err = s.db.QueryRow(`SELECT key_value_encrypted FROM api_keys WHERE service_name = ?`, serviceName).Scan(&encoded)
	if err == sql.ErrNoRows {
		return "", errors.NewNotFoundError(
			"No secret stored for this service",
			fmt.Sprintf("api_keys has no row for %q", serviceName),
			"Store the key first (skald models --set-key)",
		)
	}
	if err != nil {
		return "", errors.NewDatabaseError("Cannot read the secret", "", "", err)
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(sealed) < aead.NonceSize() {
		return "", decryptionError(serviceName, err)
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(serviceName))
	if err != nil {
		return "", decryptionError(serviceName, err)
	}
	return string(plaintext), nil
}

func decryptionError(serviceName string, err error) error {
	return errors.NewConfigError(
		"Stored secret cannot be decrypted",
		fmt.Sprintf("Secret %q was sealed under a different SECRETS_KEY", serviceName),
		"Re-store the secret with the current SECRETS_KEY",
		err,
	)
}
